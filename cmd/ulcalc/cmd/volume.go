package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/upperlimit/internal/config"
	"github.com/obsidianstack/upperlimit/internal/engine"
)

// volumeRow is one search in the volume command output.
type volumeRow struct {
	Analysis string              `json:"analysis"`
	Search   engine.SearchResult `json:"search"`
}

func newVolumeCmd(opts *rootOptions) *cobra.Command {
	var (
		configPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Print the sensitive volume of every search",
		Long: `Volume integrates each search's efficiency curve, or bins its found and
missed injections, and prints the resulting sensitive volume-time and its
uncertainty without computing any posterior.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			opts.setupLogging(cfg)

			var rows []volumeRow
			for _, a := range cfg.Analyses {
				for _, s := range a.Searches {
					sr, err := engine.Resolve(s)
					if err != nil {
						return fmt.Errorf("analysis %q: search %q: %w", a.Name, s.Name, err)
					}
					rows = append(rows, volumeRow{Analysis: a.Name, Search: sr})
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return printVolumes(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output volumes as JSON")

	return cmd
}

func printVolumes(w io.Writer, rows []volumeRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANALYSIS\tSEARCH\tKIND\tLIVETIME\tVOLUME\tERROR\tBACKGROUND")
	for _, r := range rows {
		s := r.Search
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%.6g\t%.6g\t%g\n",
			r.Analysis, s.Name, s.Kind, s.Livetime,
			s.Sensitivity.Volume, s.Sensitivity.VolumeError, s.Sensitivity.Background)
	}
	return tw.Flush()
}
