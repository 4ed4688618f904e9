package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/upperlimit/internal/config"
	"github.com/obsidianstack/upperlimit/internal/export"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "show <textfile>",
		Short: "Print the limits stored in a textfile written by compute --textfile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.setupLogging(nil)

			mfs, err := export.ReadTextfile(args[0])
			if err != nil {
				return err
			}
			name := prefix + "_upper_limit"
			if prefix == "" {
				name = "upper_limit"
			}
			samples := export.Samples(mfs, name)
			if samples == nil {
				return fmt.Errorf("no %s samples in %s", name, args[0])
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ANALYSIS\tCONFIDENCE\tUPPER")
			for _, s := range samples {
				fmt.Fprintf(tw, "%s\t%s\t%.4g\n", s.Labels["analysis"], s.Labels["confidence"], s.Value)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", config.DefaultMetricsPrefix, "Metric name prefix used when the file was written")
	return cmd
}
