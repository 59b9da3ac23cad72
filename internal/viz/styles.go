package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/diffbase/internal/base"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))

	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	descStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
)

var phaseStyles = map[base.Phase]lipgloss.Style{
	base.PhaseUninitialized: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true),
	base.PhaseIdle:          lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Bold(true),
	base.PhaseRunning:       lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88")).Bold(true),
	base.PhaseStopped:       lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00")).Bold(true),
}

func renderPhase(p base.Phase) string {
	return phaseStyles[p].Render(p.String())
}
