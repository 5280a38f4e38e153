// Package tui provides an interactive explorer that reruns coordinate set
// attention on random grids and shows the statistics of every output block.
package tui

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eltociear/Ef-RAFT/internal/attention"
	"github.com/eltociear/Ef-RAFT/internal/features"
	"github.com/eltociear/Ef-RAFT/internal/report"
	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)
)

// chrome is the number of lines around the viewport
const chrome = 7

// ExploreModel is the bubbletea model of the explorer
type ExploreModel struct {
	cfg      attention.Config
	shape    []int
	paired   bool
	seed     int64
	train    bool
	renderer *report.Renderer

	viewport viewport.Model
	spinner  spinner.Model
	content  string
	running  bool
	runs     int
	err      error
	ready    bool
}

type forwardDoneMsg struct {
	seed    int64
	shapes  [][]int
	stats   [][]report.BlockStat
	elapsed time.Duration
}

type forwardErrorMsg struct {
	err error
}

// NewExploreModel creates an explorer over grids of shape
// [batch, cfg.FeatureSize, height, width]. The first pass starts with Init.
func NewExploreModel(cfg attention.Config, batch, height, width int, paired, color bool) ExploreModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	return ExploreModel{
		cfg:      cfg,
		shape:    []int{batch, cfg.FeatureSize, height, width},
		paired:   paired,
		seed:     cfg.Seed,
		renderer: report.NewRenderer(color),
		viewport: viewport.New(80, 20),
		spinner:  sp,
		running:  true,
	}
}

func (m ExploreModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.forward())
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - chrome
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "n":
			return m.rerun(func(m *ExploreModel) { m.seed++ })
		case "t":
			return m.rerun(func(m *ExploreModel) { m.train = !m.train })
		case "i":
			return m.rerun(func(m *ExploreModel) {
				if m.cfg.Interpolation == tensor.Bilinear {
					m.cfg.Interpolation = tensor.Nearest
				} else {
					m.cfg.Interpolation = tensor.Bilinear
				}
			})
		}

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case forwardDoneMsg:
		m.running = false
		m.runs++
		m.err = nil
		m.content = m.render(msg)
		m.viewport.SetContent(m.content)
		m.viewport.GotoTop()
		return m, nil

	case forwardErrorMsg:
		m.running = false
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ExploreModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Coordinate set attention explorer"))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.status()))
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n\n")

	switch {
	case m.running:
		sb.WriteString(m.spinner.View() + " running forward pass...")
	case m.err != nil:
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	default:
		sb.WriteString(fmt.Sprintf("%d runs", m.runs))
	}
	sb.WriteString("\n")

	sb.WriteString(helpStyle.Render("n: new seed | t: toggle dropout | i: toggle interpolation | q: quit"))
	return sb.String()
}

func (m ExploreModel) status() string {
	mode := "eval"
	if m.train {
		mode = "train"
	}
	kind := features.Single
	if m.paired {
		kind = features.Paired
	}
	return fmt.Sprintf("seed %d | %s | %s | %s grid %v", m.seed, mode, m.cfg.Interpolation, kind, m.shape)
}

// rerun applies change and starts a new pass. Keys are ignored while a
// pass is in flight so results always match the status line.
func (m ExploreModel) rerun(change func(*ExploreModel)) (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	change(&m)
	m.running = true
	return m, tea.Batch(m.spinner.Tick, m.forward())
}

// forward captures the current settings so the pass runs off the update loop
func (m ExploreModel) forward() tea.Cmd {
	cfg, shape, paired, seed, train := m.cfg, m.shape, m.paired, m.seed, m.train
	return func() tea.Msg {
		return runForward(cfg, shape, paired, seed, train)
	}
}

func runForward(cfg attention.Config, shape []int, paired bool, seed int64, train bool) tea.Msg {
	cfg.Seed = seed
	rng := rand.New(rand.NewSource(seed))
	module, err := attention.NewWithRandomWeights(cfg, rng)
	if err != nil {
		return forwardErrorMsg{err: err}
	}
	if train {
		module.Train()
	}

	in := features.RandomInput(rng, shape, paired)
	start := time.Now()
	out, err := features.Apply(in, module.Forward)
	if err != nil {
		return forwardErrorMsg{err: err}
	}

	done := forwardDoneMsg{seed: seed, elapsed: time.Since(start)}
	for _, grid := range out.Grids() {
		stats, err := report.Blocks(grid, cfg.FeatureSize, cfg.EncSize, len(attention.Directions))
		if err != nil {
			return forwardErrorMsg{err: err}
		}
		done.shapes = append(done.shapes, grid.Shape())
		done.stats = append(done.stats, stats)
	}
	return done
}

func (m ExploreModel) render(msg forwardDoneMsg) string {
	var sb strings.Builder
	for i, stats := range msg.stats {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderer.Title(fmt.Sprintf("grid %d -> %v", i, msg.shapes[i])))
		sb.WriteString("\n")
		sb.WriteString(m.renderer.StatsTable(stats))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.renderer.Note(fmt.Sprintf("seed %d in %v", msg.seed, msg.elapsed.Round(time.Microsecond))))
	return sb.String()
}
