package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/eltociear/Ef-RAFT/internal/system"
)

const version = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "efraft v%s\n", version)
			fmt.Fprintln(out, "Coordinate set attention for dense feature grids")
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, "Build: development")
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "Platform: %s\n", system.Platform())
			if mem, err := system.ReadMemory(); err == nil {
				fmt.Fprintf(out, "Memory: %s available of %s\n",
					system.FormatBytes(mem.AvailableBytes), system.FormatBytes(mem.TotalBytes))
			}
		},
	}
}
