package viz

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/sim"
)

const (
	viewWidth  = 64
	viewHeight = 24
	trailCap   = 2000
	maxEvents  = 6
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	canvasStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(40)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type TickMsg time.Time

// Model drives a simulation interactively: each frame advances the clock by
// a fixed slice of simulated time, merging on close encounters when
// configured to.
type Model struct {
	sim          *sim.Simulation
	until        float64
	merge        bool
	timePerFrame float64

	view    *View
	trails  map[string][]body.Vec3
	events  []string
	running bool
	done    bool
	err     error
	merges  int
}

func NewModel(s *sim.Simulation, until float64, merge bool, extent float64) Model {
	return Model{
		sim:          s,
		until:        until,
		merge:        merge,
		timePerFrame: until / 1200, // ~40s of wall time at 30fps
		view:         NewView(viewWidth, viewHeight, extent),
		trails:       make(map[string][]body.Vec3),
		running:      true,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.timePerFrame *= 2
		case "-":
			m.timePerFrame /= 2
		case "z":
			m.view.SetExtent(m.view.Extent() * 0.8)
		case "x":
			m.view.SetExtent(m.view.Extent() * 1.25)
		}
		return m, nil

	case TickMsg:
		if m.running && !m.done && m.err == nil {
			m.advance()
		}
		return m, tick()
	}

	return m, nil
}

func (m *Model) advance() {
	target := m.sim.Time() + m.timePerFrame
	if target > m.until {
		target = m.until
	}

	err := m.sim.Integrate(context.Background(), target)

	var enc *sim.CloseEncounter
	switch {
	case err == nil:
		if m.sim.Time() >= m.until {
			m.done = true
		}
	case errors.As(err, &enc):
		m.pushEvent(fmt.Sprintf("t=%.2f  encounter %s/%s d=%.4f", enc.Time, enc.First, enc.Second, enc.Distance))
		if m.merge {
			merged, mErr := m.sim.MergeClosestPair()
			if mErr != nil {
				m.err = mErr
				return
			}
			m.merges++
			m.pushEvent(fmt.Sprintf("t=%.2f  merged into %s (m=%.4g)", enc.Time, merged.ID, merged.Mass))
			delete(m.trails, enc.First)
			delete(m.trails, enc.Second)
		} else {
			m.done = true
		}
	default:
		m.err = err
		return
	}

	for _, b := range m.sim.Bodies() {
		trail := append(m.trails[b.ID], b.Pos)
		if len(trail) > trailCap {
			trail = trail[len(trail)-trailCap:]
		}
		m.trails[b.ID] = trail
	}
}

func (m Model) View() string {
	m.view.Clear()
	for _, trail := range m.trails {
		for _, p := range trail {
			m.view.Plot(p)
		}
	}

	stats := fmt.Sprintf("%s%s\n%s%s\n%s%s\n%s%s\n%s%s",
		labelStyle.Render("time"), valueStyle.Render(fmt.Sprintf("%.3f / %.1f", m.sim.Time(), m.until)),
		labelStyle.Render("bodies"), valueStyle.Render(fmt.Sprintf("%d", m.sim.N())),
		labelStyle.Render("merges"), valueStyle.Render(fmt.Sprintf("%d", m.merges)),
		labelStyle.Render("energy"), valueStyle.Render(fmt.Sprintf("%.6g", m.sim.Energy())),
		labelStyle.Render("speed"), valueStyle.Render(fmt.Sprintf("%.3g t/frame", m.timePerFrame)),
	)

	if !m.running {
		stats += "\n\n" + pausedStyle.Render("PAUSED")
	}
	if m.done {
		stats += "\n\n" + headerStyle.Render("FINISHED")
	}
	if m.err != nil {
		stats += "\n\n" + eventStyle.Render("error: "+m.err.Error())
	}

	if len(m.events) > 0 {
		stats += "\n"
		for _, e := range m.events {
			stats += "\n" + eventStyle.Render(e)
		}
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.view.String()),
		statsStyle.Render(stats),
	)

	return headerStyle.Render("orbitlab live") + "\n" +
		main + "\n" +
		helpStyle.Render("space pause · +/- speed · z/x zoom · q quit")
}

func (m *Model) pushEvent(s string) {
	m.events = append(m.events, s)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}
