// Package report renders command output: per-block statistics of an augmented
// grid as a styled table, and highlighted configuration dumps.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// BlockStat summarizes one channel block of an augmented grid
type BlockStat struct {
	Name     string
	Start    int
	Channels int
	Mean     float32
	Min      float32
	Max      float32
}

// Blocks splits out [batch, featureSize + slots*encSize, H, W] into the input
// block followed by one block per sorted slot and summarizes each
func Blocks(out *tensor.Tensor, featureSize, encSize, slots int) ([]BlockStat, error) {
	if out.NumDims() != 4 {
		return nil, fmt.Errorf("expected a 4D grid, got shape %v", out.Shape())
	}
	if want := featureSize + slots*encSize; out.Dim(1) != want {
		return nil, fmt.Errorf("grid has %d channels, expected %d", out.Dim(1), want)
	}

	stats := make([]BlockStat, 0, slots+1)
	stats = append(stats, summarize(out, "input", 0, featureSize))
	for k := 0; k < slots; k++ {
		stats = append(stats, summarize(out, fmt.Sprintf("slot %d", k), featureSize+k*encSize, encSize))
	}
	return stats, nil
}

func summarize(out *tensor.Tensor, name string, start, channels int) BlockStat {
	// Channel axis first so the block is one contiguous narrow
	block := tensor.Narrow(tensor.Permute(out, 1, 0, 2, 3), 0, start, channels)
	return BlockStat{
		Name:     name,
		Start:    start,
		Channels: channels,
		Mean:     tensor.Mean(block),
		Min:      tensor.Min(block),
		Max:      tensor.Max(block),
	}
}

// MaxAbsDiff returns the largest element-wise distance between two grids
func MaxAbsDiff(a, b *tensor.Tensor) float32 {
	diff := tensor.Sub(a, b)
	hi, low := tensor.Max(diff), tensor.Min(diff)
	if -low > hi {
		return -low
	}
	return hi
}

// Renderer formats tables and headings, with or without color
type Renderer struct {
	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	mutedStyle  lipgloss.Style
}

// NewRenderer creates a renderer; color false yields plain text
func NewRenderer(color bool) *Renderer {
	if !color {
		plain := lipgloss.NewStyle()
		return &Renderer{titleStyle: plain, headerStyle: plain, cellStyle: plain, mutedStyle: plain}
	}

	return &Renderer{
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE")),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D4FF")),
		cellStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FFF00")),
		mutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true),
	}
}

// Title renders a heading line
func (r *Renderer) Title(text string) string {
	return r.titleStyle.Render(text)
}

// Note renders a secondary line
func (r *Renderer) Note(text string) string {
	return r.mutedStyle.Render(text)
}

// Table renders rows under headers with left-aligned, padded columns
func (r *Renderer) Table(headers []string, rows [][]string) string {
	widths := lo.Map(headers, func(h string, i int) int {
		return lo.Max(append(lo.FilterMap(rows, func(row []string, _ int) (int, bool) {
			if i < len(row) {
				return len(row[i]), true
			}
			return 0, false
		}), len(h)))
	})

	var sb strings.Builder
	sb.WriteString(r.line(r.headerStyle, headers, widths))
	for _, row := range rows {
		sb.WriteString("\n")
		sb.WriteString(r.line(r.cellStyle, row, widths))
	}
	return sb.String()
}

func (r *Renderer) line(style lipgloss.Style, cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = style.Render(cell + strings.Repeat(" ", widths[i]-len(cell)+2))
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
}

// StatsTable renders block statistics
func (r *Renderer) StatsTable(stats []BlockStat) string {
	rows := lo.Map(stats, func(s BlockStat, _ int) []string {
		return []string{
			s.Name,
			fmt.Sprintf("%d-%d", s.Start, s.Start+s.Channels-1),
			fmt.Sprintf("%.5f", s.Mean),
			fmt.Sprintf("%.5f", s.Min),
			fmt.Sprintf("%.5f", s.Max),
		}
	})
	return r.Table([]string{"block", "channels", "mean", "min", "max"}, rows)
}

// HighlightYAML applies terminal syntax highlighting to a YAML document.
// On any highlighting failure the source is returned unchanged.
func HighlightYAML(src string) string {
	lexer := lexers.Get("yaml")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	// Use terminal256 formatter for ANSI color output
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return src
	}
	return buf.String()
}
