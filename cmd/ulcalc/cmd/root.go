// Package cmd provides the CLI commands for ulcalc.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/obsidianstack/upperlimit/internal/config"
	"github.com/obsidianstack/upperlimit/internal/logging"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	logLevel  string
	logFormat string
}

// setupLogging installs the logger. Flags win over the config file; cfg
// may be nil for commands that do not read one.
func (o *rootOptions) setupLogging(cfg *config.Config) {
	level, format := "warn", "text"
	if cfg != nil {
		level, format = cfg.Logging.Level, cfg.Logging.Format
	}
	if o.logLevel != "" {
		level = o.logLevel
	}
	if o.logFormat != "" {
		format = o.logFormat
	}
	logging.Setup(level, format)
}

// NewRootCmd creates the root command for the ulcalc CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ulcalc",
		Short: "Bayesian upper limits on event rates",
		Long: `ulcalc combines the sensitive volumes of independent searches into a
posterior on the event rate and reports credible upper limits.

Analyses are described in a YAML config file; see config.example.yaml.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("ulcalc version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug | info | warn | error (default from config)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: json | text (default from config)")

	cmd.AddCommand(newComputeCmd(opts))
	cmd.AddCommand(newVolumeCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
