// Package tui runs a simulation live in the terminal: an x-y projection of
// the particle cloud with the per-step active fraction beneath it.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/report"
	"github.com/san-kum/dilasim/internal/sim"
)

var (
	cyan       = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimCyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("30"))
	magenta    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	dimMagenta = lipgloss.NewStyle().Foreground(lipgloss.Color("96"))
	white      = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim        = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer     = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green      = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	historyLen  = 60
	maxPerFrame = 100
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type Model struct {
	session       *sim.Session
	cfg           dynamo.RunConfig
	n             int
	extent        float64
	stepsPerFrame int

	paused  bool
	done    bool
	history []float64
	result  *sim.Result
	err     error

	lastFrame time.Time
	fps       float64

	width  int
	height int
}

// NewModel starts a session on s and wraps it for display. stepsPerFrame
// steps are taken on every frame.
func NewModel(s *sim.Simulator, initial []dynamo.Particle, cfg dynamo.RunConfig, stepsPerFrame int) (Model, error) {
	session, err := s.Start(initial, cfg)
	if err != nil {
		return Model{}, err
	}
	return Model{
		session:       session,
		cfg:           cfg,
		n:             len(initial),
		extent:        extentOf(initial),
		stepsPerFrame: max(1, stepsPerFrame),
		history:       make([]float64, 0, historyLen),
		width:         80,
		height:        24,
	}, nil
}

func (m Model) Init() tea.Cmd { return tick() }

// Result is the finished run, or nil while it is still going.
func (m Model) Result() *sim.Result { return m.result }
func (m Model) Err() error          { return m.err }
func (m Model) Done() bool          { return m.done }
func (m Model) Paused() bool        { return m.paused }
func (m Model) StepIndex() int      { return m.session.StepIndex() }
func (m Model) History() []float64  { return m.history }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		if !m.paused {
			now := time.Now()
			if !m.lastFrame.IsZero() {
				if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
					m.fps = 1.0 / dt
				}
			}
			m.lastFrame = now
			m.advance()
		}
		if m.done {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.stepsPerFrame && !m.session.Done(); i++ {
		active, err := m.session.Step()
		if err != nil {
			m.err = err
			m.finish()
			return
		}
		frac := 0.0
		if m.n > 0 {
			frac = float64(active) / float64(m.n)
		}
		m.history = append(m.history, frac)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	}
	if m.session.Done() {
		m.finish()
	}
}

func (m *Model) finish() {
	if m.done {
		return
	}
	m.done = true
	res, err := m.session.Finish()
	if err != nil && m.err == nil {
		m.err = err
	}
	m.result = res
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.finish()
		return m, tea.Quit
	case " ", "space":
		m.paused = !m.paused
	case "+", "=":
		m.stepsPerFrame = min(m.stepsPerFrame*2, maxPerFrame)
	case "-", "_":
		m.stepsPerFrame = max(m.stepsPerFrame/2, 1)
	case "n":
		if m.paused && !m.done {
			saved := m.stepsPerFrame
			m.stepsPerFrame = 1
			m.advance()
			m.stepsPerFrame = saved
		}
	}
	return m, nil
}

func (m Model) View() string {
	cw := max(m.width-6, 40)
	ch := max(m.height-10, 10)

	var b strings.Builder

	status := green.Render("● running")
	switch {
	case m.err != nil:
		status = red.Render("✕ " + m.err.Error())
	case m.done:
		status = cyan.Render("■ finished")
	case m.paused:
		status = yellow.Render("○ paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s  %s  %s\n",
		cyan.Render("d i l a s i m"), dim.Render(m.cfg.Mode.String()), status))

	step := m.session.StepIndex()
	progress := 0.0
	if m.cfg.Steps > 0 {
		progress = float64(step) / float64(m.cfg.Steps)
	}
	barWidth := 36
	filled := min(int(progress*float64(barWidth)), barWidth)
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar,
		dim.Render(fmt.Sprintf("step %d/%d", step, m.cfg.Steps)),
		dim.Render(fmt.Sprintf("%.0ffps ×%d", m.fps, m.stepsPerFrame))))

	var ps []dynamo.Particle
	if !m.done {
		ps = m.session.Particles()
	} else if m.result != nil {
		ps = m.result.Particles
	}
	for _, line := range strings.Split(project(ps, cw, ch, m.extent), "\n") {
		b.WriteString("   " + line + "\n")
	}

	last := 0.0
	if len(m.history) > 0 {
		last = m.history[len(m.history)-1]
	}
	b.WriteString(fmt.Sprintf("\n   %s %s %s  %s\n",
		dim.Render("active"),
		report.ProgressBar(last, 20),
		white.Render(fmt.Sprintf("%5.1f%%", 100*last)),
		report.Sparkline(m.history, 30)))
	b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %g\n",
		dim.Render("particles"), white.Render(fmt.Sprintf("%d", m.n)),
		dim.Render("samples"), white.Render(fmt.Sprintf("%d", m.cfg.Samples)),
		dim.Render("sensitivity"), m.cfg.Sensitivity))

	b.WriteString("\n" + dim.Render("   space pause  n step  ±speed  q quit") + "\n")
	return b.String()
}

// Run shows m until the run ends or the user quits, and returns the run's
// result.
func Run(m Model) (*sim.Result, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	fm := final.(Model)
	if !fm.done {
		fm.finish()
	}
	return fm.result, fm.err
}
