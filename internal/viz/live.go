package viz

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/sim"
)

const (
	width           = 64
	height          = 20
	historyCapacity = 600
	frameInterval   = time.Second / 30

	linearStep  = 0.1
	angularStep = 0.5
)

type TickMsg time.Time

// Model is the live view. In teleop mode the keyboard sets the commanded
// twist, which is resent at the configured command rate while sending is on.
// Otherwise the configured script drives the base until the run duration.
type Model struct {
	cfg      *config.Config
	scenario string
	manual   bool
	logger   *slog.Logger

	sim     *sim.Simulator
	err     error
	running bool
	sending bool

	linear, angular float64
	lastSend        float64

	canvas  *Canvas
	samples []sim.Sample
	issued  []float64
	actual  []float64
	drift   float64
}

// NewModel builds a live view over a fresh simulator. A nil logger discards
// the controller's logs, which would otherwise tear the terminal.
func NewModel(cfg *config.Config, scenario string, manual bool, logger *slog.Logger) (Model, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := Model{
		cfg:      cfg,
		scenario: scenario,
		manual:   manual,
		logger:   logger,
		running:  true,
		sending:  manual,
		canvas:   NewCanvas(width, height),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	opts := []sim.Option{sim.WithLogger(m.logger)}
	if m.manual {
		opts = append(opts, sim.Manual())
	}
	s, err := sim.New(m.cfg, opts...)
	if err != nil {
		return err
	}
	m.sim = s
	m.err = nil
	m.linear, m.angular = 0, 0
	m.lastSend = math.Inf(-1)
	m.samples = make([]sim.Sample, 0, historyCapacity)
	m.issued = make([]float64, 0, historyCapacity)
	m.actual = make([]float64, 0, historyCapacity)
	m.drift = 0
	m.canvas.Clear()
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles keys and advances the simulation one frame per tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "up":
			m.setCommand(m.linear+linearStep, m.angular)
		case "down":
			m.setCommand(m.linear-linearStep, m.angular)
		case "left":
			m.setCommand(m.linear, m.angular+angularStep)
		case "right":
			m.setCommand(m.linear, m.angular-angularStep)
		case "s":
			m.setCommand(0, 0)
		case "h":
			m.sending = !m.sending
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) setCommand(linear, angular float64) {
	if !m.manual {
		return
	}
	m.linear = math.Round(linear*100) / 100
	m.angular = math.Round(angular*100) / 100
	m.lastSend = math.Inf(-1)
}

// stepsPerFrame keeps simulated time in step with the wall clock.
func (m *Model) stepsPerFrame() int {
	return max(1, int(math.Round(frameInterval.Seconds()/m.cfg.Sim.Dt)))
}

func (m *Model) advance() {
	for range m.stepsPerFrame() {
		if !m.manual && m.sim.Time() >= m.cfg.Sim.Duration {
			m.running = false
			return
		}
		if m.manual && m.sending && m.sim.Time()-m.lastSend >= 1/m.cfg.Sim.CommandRate {
			if err := m.sim.Command(m.linear, m.angular); err != nil {
				m.err = err
				return
			}
			m.lastSend = m.sim.Time()
		}
		s, err := m.sim.Step()
		if err != nil && s.Time == 0 {
			m.err = err
			return
		}
		m.record(s)
	}
}

func (m *Model) record(s sim.Sample) {
	m.samples = append(m.samples, s)
	m.issued = append(m.issued, s.Issued.Linear)
	m.actual = append(m.actual, s.TrueTwist.Linear)
	if len(m.samples) > historyCapacity {
		m.samples = m.samples[1:]
		m.issued = m.issued[1:]
		m.actual = m.actual[1:]
	}
	m.drift = math.Max(m.drift, math.Hypot(s.Pose.X-s.TruePose.X, s.Pose.Y-s.TruePose.Y))
}

func (m Model) View() string {
	m.canvas.Clear()
	drawPaths(m.canvas, m.samples)
	m.drawHeading()
	left := canvasStyle.Render(m.canvas.String())

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.scenario)) + "\n")
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Status", status)
	row("Time", fmt.Sprintf("%.2f s", m.sim.Time()))
	if len(m.samples) > 0 {
		s := m.samples[len(m.samples)-1]
		b.WriteString(labelStyle.Render("Phase") + renderPhase(s.Phase) + "\n\n")
		row("Odometry", fmt.Sprintf("%+.3f %+.3f %+.2f", s.Pose.X, s.Pose.Y, s.Pose.Theta))
		row("True", fmt.Sprintf("%+.3f %+.3f %+.2f", s.TruePose.X, s.TruePose.Y, s.TruePose.Theta))
		row("Drift", fmt.Sprintf("%.4f m", m.drift))
		row("Desired", fmt.Sprintf("%+.2f m/s %+.2f rad/s", s.Desired.Linear, s.Desired.Angular))
		row("Issued", fmt.Sprintf("%+.2f m/s %+.2f rad/s", s.Issued.Linear, s.Issued.Angular))
		row("Wheels", fmt.Sprintf("%+.2f %+.2f rad/s", s.Setpoints[0], s.Setpoints[1]))
	}
	if m.manual {
		b.WriteString("\n")
		row("Command", fmt.Sprintf("%+.2f m/s %+.2f rad/s", m.linear, m.angular))
		sending := "on"
		if !m.sending {
			sending = "off"
		}
		row("Sending", sending)
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	right := statsStyle.Render(b.String())

	view := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	if len(m.issued) > 1 {
		graph := PlotSeries([][]float64{m.issued, m.actual}, []string{"issued", "measured"}, "linear velocity (m/s)", 2*width, 6)
		view += "\n" + graphStyle.Render(graph)
	}
	help := "space pause • r reset • q quit"
	if m.manual {
		help = "↑/↓ linear • ←/→ angular • s zero • h hold off • " + help
	}
	return view + "\n" + helpStyle.Render(help)
}

// drawHeading marks the odometry heading with a short tick from the last pose.
func (m Model) drawHeading() {
	if len(m.samples) == 0 {
		return
	}
	xs := make([]float64, 0, 2*len(m.samples))
	ys := make([]float64, 0, 2*len(m.samples))
	for _, s := range m.samples {
		xs = append(xs, s.TruePose.X, s.Pose.X)
		ys = append(ys, s.TruePose.Y, s.Pose.Y)
	}
	vp := Fit(m.canvas, xs, ys)
	p := m.samples[len(m.samples)-1].Pose
	x0, y0 := vp.Project(p.X, p.Y)
	const marker = 6.0
	x1 := x0 + int(math.Round(marker*math.Cos(p.Theta)))
	y1 := y0 - int(math.Round(marker*math.Sin(p.Theta)))
	m.canvas.DrawLine(x0, y0, x1, y1)
}
