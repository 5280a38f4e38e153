package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eltociear/Ef-RAFT/internal/config"
	"github.com/eltociear/Ef-RAFT/internal/logging"
	"github.com/eltociear/Ef-RAFT/internal/report"
)

// rootOptions holds the global flags and the configuration they resolve to
type rootOptions struct {
	cfgFile  string
	verbose  bool
	logLevel string
	noColor  bool

	v   *viper.Viper
	cfg *config.Config
}

// renderer returns an output renderer honoring --no-color and cli.color
func (o *rootOptions) renderer() *report.Renderer {
	return report.NewRenderer(o.cfg.CLI.Color && !o.noColor)
}

// newRootCommand builds the command tree with fresh flag state
func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "efraft",
		Short: "Coordinate set attention for dense feature grids",
		Long: `efraft augments a feature grid with an order-invariant set of relative
position codes gathered along rows, columns and both diagonals.

Each direction attends over its lines with one shared multi-head attention
layer; the results are converted to relative codes, sorted per cell and
appended to the input channels.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.efraft/config.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	// Bind flags to viper
	opts.v.BindPFlag("logging.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newRunCommand(opts),
		newTableCommand(opts),
		newExploreCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// load reads configuration and initializes logging
func (o *rootOptions) load() error {
	cfg, err := config.LoadWith(o.v, o.cfgFile)
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	if used := o.v.ConfigFileUsed(); used != "" {
		logging.Debugf("Using config file: %s", used)
	}

	o.cfg = cfg
	return nil
}

// ExecuteContext runs the root command with a cancellable context
func ExecuteContext(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}
