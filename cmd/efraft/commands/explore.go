package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eltociear/Ef-RAFT/internal/tui"
)

type exploreOptions struct {
	batch  int
	height int
	width  int
	paired bool
}

func newExploreCommand(root *rootOptions) *cobra.Command {
	opts := &exploreOptions{}

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Interactively rerun attention with different seeds and settings",
		Long: `Open a terminal UI that runs coordinate set attention on a random grid
and shows the statistics of every output block. Keys draw a new seed,
toggle dropout or switch the feature interpolation and rerun the pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return explore(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.batch, "batch", 1, "batch size of each grid")
	cmd.Flags().IntVar(&opts.height, "height", 8, "grid height")
	cmd.Flags().IntVar(&opts.width, "width", 8, "grid width")
	cmd.Flags().BoolVar(&opts.paired, "paired", false, "explore a pair of grids")

	return cmd
}

func explore(cmd *cobra.Command, root *rootOptions, opts *exploreOptions) error {
	if opts.batch <= 0 || opts.height <= 0 || opts.width <= 0 {
		return fmt.Errorf("batch, height and width must be positive")
	}

	cfg, err := root.cfg.AttentionConfig()
	if err != nil {
		return err
	}

	need := cfg.WorkingSetBytes([]int{opts.batch, cfg.FeatureSize, opts.height, opts.width})
	if opts.paired {
		need *= 2
	}
	if err := checkMemory(need, false); err != nil {
		return err
	}

	model := tui.NewExploreModel(cfg, opts.batch, opts.height, opts.width, opts.paired,
		root.cfg.CLI.Color && !root.noColor)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running explorer: %w", err)
	}
	return nil
}
