package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eltociear/Ef-RAFT/internal/attention"
)

type tableOptions struct {
	positions int
	hidden    int
	maxLen    int
}

func newTableCommand(root *rootOptions) *cobra.Command {
	opts := &tableOptions{}

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print rows of the sinusoidal positional table",
		Long: `Print the positional encoding of positions 1..N. Even channels hold
sin(p / 10000^(2i/hidden)) and odd channels the matching cosine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTable(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.positions, "positions", 4, "number of positions to print")
	cmd.Flags().IntVar(&opts.hidden, "hidden", 8, "hidden size (even)")
	cmd.Flags().IntVar(&opts.maxLen, "max-len", attention.DefaultMaxLen, "positions in the table")

	return cmd
}

func printTable(cmd *cobra.Command, root *rootOptions, opts *tableOptions) error {
	pe, err := attention.NewPositionalEncoding(opts.hidden, opts.maxLen, 0)
	if err != nil {
		return err
	}
	if opts.positions <= 0 || opts.positions > pe.MaxLen() {
		return fmt.Errorf("positions must be in [1, %d], got %d", pe.MaxLen(), opts.positions)
	}

	headers := make([]string, 0, opts.hidden+1)
	headers = append(headers, "pos")
	for c := 0; c < opts.hidden; c++ {
		fn := "sin"
		if c%2 == 1 {
			fn = "cos"
		}
		headers = append(headers, fmt.Sprintf("%s%d", fn, c/2))
	}

	rows := make([][]string, 0, opts.positions)
	for p := 1; p <= opts.positions; p++ {
		values, err := pe.Row(p)
		if err != nil {
			return err
		}
		row := []string{strconv.Itoa(p)}
		for _, v := range values {
			row = append(row, fmt.Sprintf("%.5f", v))
		}
		rows = append(rows, row)
	}

	r := root.renderer()
	fmt.Fprintln(cmd.OutOrStdout(), r.Title(fmt.Sprintf("Positional table (hidden=%d)", opts.hidden)))
	fmt.Fprintln(cmd.OutOrStdout(), r.Table(headers, rows))
	return nil
}
