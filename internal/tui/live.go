package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/orbitekf/internal/propagate"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const historyLen = 60

type sampleMsg Sample

// DoneMsg ends the live view with the propagation outcome.
type DoneMsg struct {
	Result *propagate.Result
	Err    error
}

// Live is the bubbletea model for a running propagation.
type Live struct {
	scenario string
	agents   []string
	duration float64
	feed     *Feed
	cancel   context.CancelFunc

	latest  Sample
	history []float64
	done    bool
	err     error
	result  *propagate.Result
}

// NewLive builds the view. cancel is called when the user quits so the
// propagation stops at its next step.
func NewLive(scenario string, agents []string, duration float64, feed *Feed, cancel context.CancelFunc) *Live {
	return &Live{
		scenario: scenario,
		agents:   agents,
		duration: duration,
		feed:     feed,
		cancel:   cancel,
		history:  make([]float64, 0, historyLen),
	}
}

func waitForSample(feed *Feed) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-feed.Samples():
			return sampleMsg(s)
		case <-feed.Done():
			return nil
		}
	}
}

func (m *Live) Init() tea.Cmd { return waitForSample(m.feed) }

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}
	case sampleMsg:
		m.observe(Sample(msg))
		if m.done {
			return m, nil
		}
		return m, waitForSample(m.feed)
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.result = msg.Result
		m.observe(m.feed.Last())
	}
	return m, nil
}

func (m *Live) observe(s Sample) {
	if s.Step < m.latest.Step {
		return
	}
	m.latest = s
	m.history = append(m.history, s.Radius)
	if len(m.history) > historyLen {
		m.history = m.history[1:]
	}
}

// Result is set once a DoneMsg arrived.
func (m *Live) Result() (*propagate.Result, error) { return m.result, m.err }

func (m *Live) Done() bool { return m.done }

func (m *Live) View() string {
	var b strings.Builder
	s := m.latest

	b.WriteString("\n  " + cyan.Render("orbitekf · "+m.scenario) + "\n\n")

	progress := 0.0
	if m.duration > 0 {
		progress = s.T / m.duration
	}
	row := func(label, value string) {
		fmt.Fprintf(&b, "   %s %s\n", dim.Render(fmt.Sprintf("%-13s", label)), white.Render(value))
	}
	row("t", fmt.Sprintf("%.1f s (%.0f%%)", s.T, 100*progress))
	row("step", fmt.Sprintf("%d", s.Step))
	row("|r|", fmt.Sprintf("%.3f km", s.Radius))
	row("energy drift", fmt.Sprintf("%.3e", s.EnergyDrift))

	if len(s.PhiDiag) > 0 {
		diag := make([]string, len(s.PhiDiag))
		for i, v := range s.PhiDiag {
			name := fmt.Sprintf("%d", i)
			if i < len(m.agents) {
				name = m.agents[i]
			}
			diag[i] = fmt.Sprintf("%s=%.6f", name, v)
		}
		row("diag Φ", strings.Join(diag, " "))
	}

	b.WriteString("\n   " + dim.Render("|r| ") + cyan.Render(sparkline(m.history, historyLen)) + "\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString("   " + yellow.Render("stopped: "+m.err.Error()) + "\n")
		b.WriteString(dim.Render("   any key to exit") + "\n")
	case m.done:
		b.WriteString("   " + cyan.Render("complete") + "\n")
		b.WriteString(dim.Render("   any key to exit") + "\n")
	default:
		b.WriteString(dim.Render("   q quit") + "\n")
	}
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i < len(data); i++ {
		idx := int((data[i] - minVal) / rang * 7)
		sb.WriteRune(chars[max(0, min(idx, 7))])
	}
	return sb.String()
}

// Run starts the live view for a propagation launched by start. start
// must return when ctx is canceled. The returned result is nil if the user
// quit first.
func Run(ctx context.Context, scenario string, agents []string, duration float64, feed *Feed,
	start func(ctx context.Context) (*propagate.Result, error)) (*propagate.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	live := NewLive(scenario, agents, duration, feed, cancel)
	p := tea.NewProgram(live, tea.WithContext(ctx))

	finished := make(chan DoneMsg, 1)
	go func() {
		res, err := start(ctx)
		feed.Close()
		msg := DoneMsg{Result: res, Err: err}
		finished <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-finished
		return nil, err
	}
	cancel()
	done := <-finished
	return done.Result, done.Err
}
