package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/upperlimit/internal/config"
	"github.com/obsidianstack/upperlimit/internal/engine"
	"github.com/obsidianstack/upperlimit/internal/export"
	"github.com/obsidianstack/upperlimit/internal/logging"
	"github.com/obsidianstack/upperlimit/internal/metrics"
)

func newComputeCmd(opts *rootOptions) *cobra.Command {
	var (
		configPath string
		jsonOutput bool
		textfile   string
		only       []string
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the credible limits of every analysis in the config",
		Long: `Compute resolves each search to a sensitive volume, folds the searches of
an analysis into one posterior and prints the credible upper limit at each
configured confidence level, with the narrowest and highest-density
intervals.

With --textfile the results are also written in the Prometheus text format,
ready for node_exporter's textfile collector.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			opts.setupLogging(cfg)

			analyses, err := selectAnalyses(cfg.Analyses, only)
			if err != nil {
				return err
			}

			m := metrics.New(cfg.Server.MetricsPrefix)
			results, err := runAnalyses(cmd.Context(), cfg, analyses, m)
			if err != nil {
				return err
			}

			if textfile != "" {
				m.Publish(results)
				if err := export.WriteTextfile(textfile, m.Registry()); err != nil {
					return err
				}
				logging.WithComponent("compute").Info("compute: textfile written", "path", textfile)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else if err := printLimits(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			return failedErr(results)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().StringVar(&textfile, "textfile", "", "Also write results in Prometheus text format to this file")
	cmd.Flags().StringSliceVarP(&only, "analysis", "a", nil, "Only compute the named analyses (repeatable)")

	return cmd
}

// runAnalyses builds an engine from cfg and runs analyses.
func runAnalyses(ctx context.Context, cfg *config.Config, analyses []config.Analysis, rec engine.Recorder) ([]*engine.Result, error) {
	eng, err := engine.New(cfg.Engine, engine.WithRecorder(rec))
	if err != nil {
		return nil, err
	}
	return eng.Run(ctx, analyses)
}

// selectAnalyses filters analyses down to names, keeping config order.
func selectAnalyses(analyses []config.Analysis, names []string) ([]config.Analysis, error) {
	if len(names) == 0 {
		return analyses, nil
	}
	byName := make(map[string]config.Analysis, len(analyses))
	for _, a := range analyses {
		byName[a.Name] = a
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := byName[n]; !ok {
			return nil, fmt.Errorf("unknown analysis %q", n)
		}
		want[n] = true
	}
	out := make([]config.Analysis, 0, len(names))
	for _, a := range analyses {
		if want[a.Name] {
			out = append(out, a)
		}
	}
	return out, nil
}

func printLimits(w io.Writer, results []*engine.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANALYSIS\tCONFIDENCE\tUPPER\tMIN-WIDTH\tHPD\tSTATUS")
	for _, r := range results {
		if !r.OK() {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\terror: %s\n", r.Analysis, r.ErrorMessage)
			continue
		}
		status := "ok"
		if r.Cached {
			status = "ok (cached)"
		}
		for _, l := range r.Limits {
			fmt.Fprintf(tw, "%s\t%g\t%.4g\t[%.4g, %.4g]\t[%.4g, %.4g]\t%s\n",
				r.Analysis, l.Confidence, l.Upper,
				l.MinWidth.Lower, l.MinWidth.Upper,
				l.HPD.Lower, l.HPD.Upper,
				status)
		}
	}
	return tw.Flush()
}

// failedErr returns an error summarising failed analyses, or nil.
func failedErr(results []*engine.Result) error {
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return nil
}
