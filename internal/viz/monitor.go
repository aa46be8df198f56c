package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/dynamo"
)

const (
	canvasWidth     = 40
	canvasHeight    = 20
	historyCapacity = 300
	barHalf         = 14
)

type TickMsg time.Time

// Monitor steps a cell once per frame and shows the correction per axis, the
// actuator footprint, and a short history. The operator drives one load axis
// at a time from the keyboard.
type Monitor struct {
	cell     *cell.Cell
	layout   *balance.Layout
	frame    time.Duration
	perFrame int
	ts       float64

	load    dynamo.Load
	offset  dynamo.Forces
	forces  dynamo.Forces
	axis    dynamo.Axis
	delta   float64
	err     error
	running bool

	canvas  *Canvas
	history []float64
	theme   Theme
	help    bool
}

// NewMonitor runs perFrame ticks every frame. The cell must be initialized.
func NewMonitor(c *cell.Cell, l *balance.Layout, frame time.Duration, perFrame int, ts float64) Monitor {
	if perFrame < 1 {
		perFrame = 1
	}
	return Monitor{
		cell:     c,
		layout:   l,
		frame:    frame,
		perFrame: perFrame,
		ts:       ts,
		delta:    1,
		running:  true,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		history:  make([]float64, 0, historyCapacity),
		theme:    Themes[0],
	}
}

func (m Monitor) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Monitor) Init() tea.Cmd { return m.tick() }

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.axis = (m.axis + 1) % dynamo.NumAxes
		case "up", "k":
			m.load[m.axis] += m.delta
		case "down", "j":
			m.load[m.axis] -= m.delta
		case "0":
			m.load = dynamo.Load{}
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.help = !m.help
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Monitor) advance() {
	for i := 0; i < m.perFrame; i++ {
		if err := m.cell.Step(m.load[:], m.offset[:], m.forces[:]); err != nil {
			m.err = err
			return
		}
	}
	m.history = append(m.history, m.cell.Correction()[m.axis])
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m *Monitor) reset() {
	m.cell.Initialize()
	m.load = dynamo.Load{}
	m.forces = dynamo.Forces{}
	m.history = m.history[:0]
	m.err = nil
}

// Forces returns the most recent actuator output.
func (m Monitor) Forces() dynamo.Forces { return m.forces }

func (m Monitor) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary)
	accent := lipgloss.NewStyle().Foreground(m.theme.Accent)
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.err != nil:
		status = StatusFault.Render("FAULT: " + m.err.Error())
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}

	var s strings.Builder
	s.WriteString(title.Render("M1 OUTER ACTUATOR CELL") + "  " + status + "\n")
	s.WriteString(muted.Render(fmt.Sprintf("tick %d  t=%.2fs", m.cell.Ticks(), float64(m.cell.Ticks())*m.ts)) + "\n\n")

	corr := m.cell.Correction()
	scale := 1.0
	for _, v := range corr {
		scale = max(scale, abs(v))
	}
	s.WriteString(accent.Render("LOAD / CORRECTION") + "\n")
	for _, a := range dynamo.Axes() {
		mark := "  "
		if a == m.axis {
			mark = "> "
		}
		s.WriteString(fmt.Sprintf("%s%-2s %8.3f %s %9.4f\n", mark, a, m.load[a], SignedBar(corr[a], scale, barHalf), corr[a]))
	}

	s.WriteString("\n" + accent.Render("FORCES") + "\n")
	s.WriteString(MetricLabel.Render("peak |f|") + MetricValue.Render(fmt.Sprintf("%.4f", m.forces.MaxAbs())) + "\n")
	s.WriteString(MetricLabel.Render("Σf") + MetricValue.Render(fmt.Sprintf("%.4f", m.forces.Sum())) + "\n")
	s.WriteString(MetricLabel.Render("‖f‖") + MetricValue.Render(fmt.Sprintf("%.4f", m.forces.Norm())) + "\n")

	s.WriteString("\n" + accent.Render(m.axis.String()+" correction") + "\n")
	s.WriteString(Sparkline(m.history, 40) + "\n")
	s.WriteString(KeyHint.Render("\nSP:Pause R:Reset Q:Quit Tab:Axis ↑↓:Load 0:Zero T:Theme ?:Help"))

	Footprint(m.canvas, m.layout, &m.forces, 0.5)
	left := Panel.Render(title.Render("|f| ≥ ½ peak") + "\n" + m.canvas.String())
	view := lipgloss.JoinHorizontal(lipgloss.Top, left, Panel.Render(s.String()))

	if m.help {
		return Panel.Render(strings.Join([]string{
			"Space   pause or resume stepping",
			"R       re-initialize the cell",
			"Tab     select the driven axis",
			"Up/K    add one unit of load",
			"Down/J  remove one unit of load",
			"0       zero the load",
			"T       cycle themes",
			"Q       quit",
		}, "\n")) + "\n" + view
	}
	return view
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
