package report

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(text string) string {
	return ansiRegex.ReplaceAllString(text, "")
}

func TestBlocks(t *testing.T) {
	// [1, 2+2*1, 1, 2]: input channels hold 1 and 3, slots hold 10 and 20
	out := tensor.NewTensorFromData([]float32{
		1, 1,
		3, 3,
		10, 12,
		20, 20,
	}, []int{1, 4, 1, 2})

	stats, err := Blocks(out, 2, 1, 2)
	if err != nil {
		t.Fatalf("Blocks failed: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(stats))
	}

	tests := []struct {
		name           string
		start, count   int
		mean, min, max float32
	}{
		{"input", 0, 2, 2, 1, 3},
		{"slot 0", 2, 1, 11, 10, 12},
		{"slot 1", 3, 1, 20, 20, 20},
	}
	for i, tt := range tests {
		s := stats[i]
		if s.Name != tt.name || s.Start != tt.start || s.Channels != tt.count {
			t.Errorf("block %d = %+v, want %s at %d (%d channels)", i, s, tt.name, tt.start, tt.count)
		}
		if math.Abs(float64(s.Mean-tt.mean)) > 1e-6 || s.Min != tt.min || s.Max != tt.max {
			t.Errorf("block %s stats = %f/%f/%f, want %f/%f/%f", s.Name, s.Mean, s.Min, s.Max, tt.mean, tt.min, tt.max)
		}
	}

	if _, err := Blocks(out, 2, 2, 2); err == nil {
		t.Error("Expected error for wrong channel count")
	}
	if _, err := Blocks(tensor.Zeros([]int{4, 2}), 2, 1, 2); err == nil {
		t.Error("Expected error for 2D input")
	}
}

func TestMaxAbsDiff(t *testing.T) {
	a := tensor.NewTensorFromData([]float32{1, 5, -2}, []int{3})
	b := tensor.NewTensorFromData([]float32{1, 4, 3}, []int{3})

	if got := MaxAbsDiff(a, b); got != 5 {
		t.Errorf("MaxAbsDiff = %f, want 5", got)
	}
	if got := MaxAbsDiff(a, a); got != 0 {
		t.Errorf("MaxAbsDiff of identical grids = %f, want 0", got)
	}
}

func TestRenderer_PlainTable(t *testing.T) {
	r := NewRenderer(false)

	out := r.Table([]string{"name", "value"}, [][]string{
		{"alpha", "1"},
		{"b", "22"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "name   value") {
		t.Errorf("header not aligned: %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "b      22") {
		t.Errorf("row not aligned: %q", lines[2])
	}
	if r.Title("Result") != "Result" {
		t.Errorf("plain title should be unstyled, got %q", r.Title("Result"))
	}
}

func TestRenderer_StatsTable(t *testing.T) {
	r := NewRenderer(true)
	out := stripANSI(r.StatsTable([]BlockStat{
		{Name: "input", Start: 0, Channels: 8, Mean: 0.5, Min: -1, Max: 2},
	}))

	for _, want := range []string{"block", "channels", "input", "0-7", "0.50000", "-1.00000"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats table missing %q:\n%s", want, out)
		}
	}
}

func TestHighlightYAML(t *testing.T) {
	src := "attention:\n  heads: 4\n"
	out := HighlightYAML(src)

	if stripANSI(out) != src {
		t.Errorf("highlighting changed the text: %q", stripANSI(out))
	}
}
