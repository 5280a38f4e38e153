package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eltociear/Ef-RAFT/internal/report"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the config file and
EFRAFT_* environment variables. The output is a valid config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := root.cfg.YAML()
			if err != nil {
				return err
			}
			if root.cfg.CLI.Color && root.cfg.CLI.SyntaxHighlight && !root.noColor {
				doc = report.HighlightYAML(doc)
			}
			fmt.Fprint(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}
