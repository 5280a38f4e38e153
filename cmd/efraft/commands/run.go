package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/eltociear/Ef-RAFT/internal/attention"
	"github.com/eltociear/Ef-RAFT/internal/features"
	"github.com/eltociear/Ef-RAFT/internal/logging"
	"github.com/eltociear/Ef-RAFT/internal/report"
	"github.com/eltociear/Ef-RAFT/internal/system"
	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

type runOptions struct {
	batch  int
	height int
	width  int
	paired bool
	train  bool
	force  bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run coordinate set attention on a random grid",
		Long: `Build a random feature grid (or a pair of grids), initialize the attention
weights from the configured seed, run one forward pass and print the output
shape together with statistics for the input block and every sorted slot.`,
		Example: `  efraft run --height 16 --width 24
  efraft run --paired --batch 2
  EFRAFT_ATTENTION_INTERPOLATION=bilinear efraft run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttention(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.batch, "batch", 1, "batch size of each grid")
	cmd.Flags().IntVar(&opts.height, "height", 8, "grid height")
	cmd.Flags().IntVar(&opts.width, "width", 8, "grid width")
	cmd.Flags().BoolVar(&opts.paired, "paired", false, "run a pair of grids merged along the batch axis")
	cmd.Flags().BoolVar(&opts.train, "train", false, "enable dropout")
	cmd.Flags().BoolVar(&opts.force, "force", false, "run even if the working set exceeds available memory")

	return cmd
}

func runAttention(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	if opts.batch <= 0 || opts.height <= 0 || opts.width <= 0 {
		return fmt.Errorf("batch, height and width must be positive")
	}

	cfg, err := root.cfg.AttentionConfig()
	if err != nil {
		return err
	}

	shape := []int{opts.batch, cfg.FeatureSize, opts.height, opts.width}
	need := cfg.WorkingSetBytes(shape)
	if opts.paired {
		need *= 2
	}
	if err := checkMemory(need, opts.force); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	module, err := attention.NewWithRandomWeights(cfg, rng)
	if err != nil {
		return fmt.Errorf("creating module: %w", err)
	}
	if opts.train {
		module.Train()
	}

	in := features.RandomInput(rng, shape, opts.paired)

	ctx := cmd.Context()
	start := time.Now()
	out, err := features.Apply(in, func(x *tensor.Tensor) (*tensor.Tensor, error) {
		return module.ForwardContext(ctx, x)
	})
	if err != nil {
		return fmt.Errorf("forward pass: %w", err)
	}
	elapsed := time.Since(start)
	logging.Infof("Forward pass over %s input finished in %v", in.Kind(), elapsed)

	r := root.renderer()
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, r.Title("Coordinate set attention"))
	fmt.Fprintln(w, r.Note(cfg.String()))

	slots := len(attention.Directions)
	for i, grid := range out.Grids() {
		stats, err := report.Blocks(grid, cfg.FeatureSize, cfg.EncSize, slots)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "grid %d: %v -> %v\n", i, in.Grids()[i].Shape(), grid.Shape())
		fmt.Fprintln(w, r.StatsTable(stats))
	}

	if out.Kind == features.Paired {
		codes := func(t *tensor.Tensor) *tensor.Tensor {
			return tensor.Narrow(t, 1, cfg.FeatureSize, slots*cfg.EncSize)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "max |code difference| between grids: %.5f\n", report.MaxAbsDiff(codes(out.First), codes(out.Second)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Note(fmt.Sprintf("elapsed %v, estimated working set %s",
		elapsed.Round(time.Microsecond), system.FormatBytes(need))))
	return nil
}

// checkMemory refuses a run whose working set does not fit into memory.
// Hosts whose memory cannot be read are not checked.
func checkMemory(need int64, force bool) error {
	mem, err := system.ReadMemory()
	if err != nil {
		logging.Debugf("Skipping memory check: %v", err)
		return nil
	}
	if err := mem.CheckBudget(need, system.DefaultReserve); err != nil {
		if force {
			logging.Warnf("Running anyway: %v", err)
			return nil
		}
		return fmt.Errorf("%w (use --force to run anyway)", err)
	}
	return nil
}
