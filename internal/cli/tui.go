package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/pipeline"
)

// Watch view styles
var (
	barStyle      = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	watchDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	barWidth     = 32
	recentShown  = 8
	tickInterval = 80 * time.Millisecond
)

// =============================================================================
// Messages
// =============================================================================

type (
	batchMsg pipeline.Progress
	doneMsg  struct {
		res *pipeline.Result
		err error
	}
	tickMsg time.Time
)

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// WatchModel - Live generation view
// =============================================================================

// WatchModel is the bubbletea model behind "gasket watch". It receives
// streamed batches and draws one progress bar per generation.
type WatchModel struct {
	Seeds    []string
	MaxDepth int

	Counts []int // circles received per generation
	Total  int
	Recent []gasket.View

	Result    *pipeline.Result
	Err       error
	Done      bool
	Cancelled bool

	cancel context.CancelFunc
	frame  int
	start  time.Time
}

// NewWatchModel creates a model for a run over seeds. cancel stops the
// run when the user quits early.
func NewWatchModel(seeds []string, maxDepth int, cancel context.CancelFunc) WatchModel {
	return WatchModel{
		Seeds:    seeds,
		MaxDepth: maxDepth,
		Counts:   make([]int, maxDepth+1),
		cancel:   cancel,
		start:    time.Now(),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tick()
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.Done {
				m.Cancelled = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, tea.Quit
		}
	case batchMsg:
		gen := int(msg.Generation)
		for len(m.Counts) <= gen {
			m.Counts = append(m.Counts, 0)
		}
		m.Counts[gen] += len(msg.Circles)
		m.Total = msg.Total
		for _, c := range msg.Circles {
			m.Recent = append(m.Recent, c.View())
		}
		if n := len(m.Recent); n > recentShown {
			m.Recent = m.Recent[n-recentShown:]
		}
	case doneMsg:
		m.Done = true
		m.Result, m.Err = msg.res, msg.err
		return m, tea.Quit
	case tickMsg:
		m.frame++
		if !m.Done {
			return m, tick()
		}
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Apollonian gasket " + strings.Join(m.Seeds, ", ")))
	b.WriteString("\n")
	b.WriteString(watchDimStyle.Render(fmt.Sprintf("depth %d  q quit", m.MaxDepth)))
	b.WriteString("\n\n")

	for gen, n := range m.Counts {
		want := expectedCount(len(m.Seeds), gen)
		b.WriteString(fmt.Sprintf("  Gen %2d  %s  %s\n", gen, bar(n, want), StyleNumber.Render(fmt.Sprintf("%d", n))))
	}

	b.WriteString("\n")
	for _, v := range m.Recent {
		b.WriteString(watchDimStyle.Render(fmt.Sprintf("  g%-2d ", v.Generation)))
		b.WriteString(StyleValue.Render(fmt.Sprintf("k=%-12s", v.Curvature)))
		b.WriteString(watchDimStyle.Render(fmt.Sprintf(" (%s, %s)", v.Center.X, v.Center.Y)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	elapsed := time.Since(m.start).Round(time.Millisecond)
	switch {
	case m.Err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + m.Err.Error())
	case m.Done:
		b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf("%d circles in %s", m.Total, elapsed))
	default:
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		b.WriteString(styleIconSpinner.Render(frames[m.frame%len(frames)]) + " " +
			StyleDim.Render(fmt.Sprintf("%d circles · %s", m.Total, elapsed)))
	}
	b.WriteString("\n")

	return b.String()
}

// expectedCount is the number of circles generation gen holds when no
// solution degenerates: the seeds, then 4 (or 2 from three seeds), then
// three times the previous generation.
func expectedCount(seeds, gen int) int {
	if gen == 0 {
		return seeds
	}
	n := 2
	if seeds == 4 {
		n = 4
	}
	for i := 1; i < gen; i++ {
		n *= 3
	}
	return n
}

func bar(n, want int) string {
	filled := barWidth
	if want > 0 && n < want {
		filled = n * barWidth / want
	}
	return barStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}
