package viz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/plant"
)

const teleopEntry = "teleop"

var scenarioInfo = map[string]string{
	teleopEntry: "drive with the arrow keys",
	"straight":  "ramp to 0.5 m/s and hold",
	"spin":      "rotate in place",
	"arc":       "constant curvature turn",
	"square":    "four sides and four turns",
	"stale":     "commands stop, base ramps down",
	"drift":     "odometry drift on a long arc",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// tunable is one base or plant parameter editable before a run.
type tunable struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64) error
}

// diffDrive is the simulated plant cfg describes.
func diffDrive(c *config.Config) *plant.DiffDrive {
	return plant.NewDiffDrive(c.Base.TrackWidth, c.Base.RadiansPerMeter, c.Plant.TimeConstant)
}

// plantTunable edits a plant parameter through the plant's own bounds checks
// and writes the result back to cfg.
func plantTunable(name string) tunable {
	return tunable{
		name: name,
		get:  func(c *config.Config) float64 { return diffDrive(c).GetParams()[name] },
		set: func(c *config.Config, v float64) error {
			d := diffDrive(c)
			if err := d.SetParam(name, v); err != nil {
				return err
			}
			c.Base.TrackWidth, c.Base.RadiansPerMeter, c.Plant.TimeConstant = d.TrackWidth, d.RadiansPerMeter, d.TimeConstant
			return nil
		},
	}
}

func configTunable(name string, get func(*config.Config) float64, set func(*config.Config, float64)) tunable {
	return tunable{name: name, get: get, set: func(c *config.Config, v float64) error {
		set(c, v)
		return nil
	}}
}

var tunables = buildTunables()

func buildTunables() []tunable {
	ts := make([]tunable, 0, len(plant.ParamNames)+5)
	for _, name := range plant.ParamNames {
		ts = append(ts, plantTunable(name))
	}
	return append(ts,
		configTunable("max_velocity_x", func(c *config.Config) float64 { return c.Base.MaxVelocityX }, func(c *config.Config, v float64) { c.Base.MaxVelocityX = v }),
		configTunable("max_accel_x", func(c *config.Config) float64 { return c.Base.MaxAccelerationX }, func(c *config.Config, v float64) { c.Base.MaxAccelerationX = v }),
		configTunable("max_accel_r", func(c *config.Config) float64 { return c.Base.MaxAccelerationR }, func(c *config.Config, v float64) { c.Base.MaxAccelerationR = v }),
		configTunable("timeout", func(c *config.Config) float64 { return c.Base.Timeout.Seconds() }, func(c *config.Config, v float64) {
			c.Base.Timeout = time.Duration(v * float64(time.Second))
		}),
		configTunable("dt", func(c *config.Config) float64 { return c.Sim.Dt }, func(c *config.Config, v float64) { c.Sim.Dt = v }),
	)
}

// Menu picks a scenario, lets its parameters be tuned, then hands over to
// the live view.
type Menu struct {
	state, cursor int
	entries       []string
	selected      string
	cfg           *config.Config
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	live          Model
}

func NewMenu() *Menu {
	return &Menu{
		state:   stateMenu,
		entries: append([]string{teleopEntry}, config.ListPresets()...),
	}
}

func (m Menu) Init() tea.Cmd { return nil }

func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case stateMenu:
			return m.menuKey(key)
		case stateConfig:
			return m.configKey(key)
		}
	}
	if m.state == stateSim {
		live, cmd := m.live.Update(msg)
		m.live = live.(Model)
		return m, cmd
	}
	return m, nil
}

func (m Menu) menuKey(msg tea.KeyMsg) (Menu, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.entries[m.cursor]
		m.cfg = config.GetPreset(m.selected)
		if m.cfg == nil {
			m.cfg = config.DefaultConfig()
		}
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
	}
	return m, nil
}

func (m Menu) configKey(msg tea.KeyMsg) (Menu, tea.Cmd) {
	p := tunables[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				m.err = p.set(m.cfg, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-") {
				m.editBuf += s
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(tunables)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(p.get(m.cfg), 'f', -1, 64)
	case "left", "h":
		m.err = p.set(m.cfg, p.get(m.cfg)*0.9)
	case "right", "l":
		m.err = p.set(m.cfg, p.get(m.cfg)*1.1)
	case "s":
		return m.start()
	}
	return m, nil
}

func (m Menu) start() (Menu, tea.Cmd) {
	live, err := NewModel(m.cfg, m.selected, m.selected == teleopEntry, nil)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.state = live, stateSim
	return m, live.Init()
}

func (m Menu) View() string {
	switch m.state {
	case stateSim:
		return m.live.View()
	case stateConfig:
		return m.configView()
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("DIFFBASE") + "\n")
	for i, name := range m.entries {
		line := fmt.Sprintf("%-10s %s", name, descStyle.Render(scenarioInfo[name]))
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString("  " + idleStyle.Render(line) + "\n")
		}
	}
	b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))
	return canvasStyle.Render(b.String())
}

func (m Menu) configView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.selected)) + "\n")
	for i, p := range tunables {
		value := strconv.FormatFloat(p.get(m.cfg), 'g', 4, 64)
		if i == m.paramCursor && m.editing {
			value = m.editBuf + "_"
		}
		if i == m.paramCursor {
			b.WriteString(cursorStyle.Render("> ") + fmt.Sprintf("%-16s", p.name) + selectedStyle.Render(value) + "\n")
		} else {
			b.WriteString("  " + subtleStyle.Render(fmt.Sprintf("%-16s", p.name)) + subtleStyle.Render(value) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ select • ←/→ adjust • enter edit • s start • esc back"))
	return canvasStyle.Render(b.String())
}

// RunInteractive opens the scenario menu in the alternate screen.
func RunInteractive() error {
	_, err := tea.NewProgram(NewMenu(), tea.WithAltScreen()).Run()
	return err
}

// RunLive opens the live view for one configuration directly.
func RunLive(cfg *config.Config, scenario string, manual bool) error {
	m, err := NewModel(cfg, scenario, manual, nil)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
