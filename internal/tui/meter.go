// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"micpipe/internal/analysis"
	"micpipe/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Meter is the engine surface the level meter polls and controls.
type Meter interface {
	Snapshot() *audio.Snapshot
	GateEnabled() bool
	EnableGate()
	DisableGate()
	GetGateThreshold() float64
	SetGateThreshold(threshold float64)
}

const gateStep = 0.005

var (
	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#D9534F")).
			Padding(0, 1).
			Bold(true)

	gateKeys = key.NewBinding(key.WithKeys("g"))
	raiseKey = key.NewBinding(key.WithKeys("+", "="))
	lowerKey = key.NewBinding(key.WithKeys("-", "_"))
)

type tickMsg time.Time

// MeterModel polls the engine snapshot at a fixed interval and draws the
// volume, RMS and peak levels.
type MeterModel struct {
	meter    Meter
	interval time.Duration
	device   string

	snapshot *audio.Snapshot
	volume   progress.Model
	level    progress.Model
	width    int
}

// NewMeterModel creates a meter polling m every interval.
func NewMeterModel(m Meter, interval time.Duration, device string) MeterModel {
	return MeterModel{
		meter:    m,
		interval: interval,
		device:   device,
		snapshot: m.Snapshot(),
		volume:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		level:    progress.New(progress.WithSolidFill("#25A065"), progress.WithoutPercentage()),
		width:    60,
	}
}

func (m MeterModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts polling.
func (m MeterModel) Init() tea.Cmd {
	return m.tick()
}

func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(20, min(msg.Width-20, 80))
		m.volume.Width = m.width
		m.level.Width = m.width

	case tickMsg:
		m.snapshot = m.meter.Snapshot()
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKeys):
			return m, tea.Quit
		case key.Matches(msg, gateKeys):
			if m.meter.GateEnabled() {
				m.meter.DisableGate()
			} else {
				m.meter.EnableGate()
			}
		case key.Matches(msg, raiseKey):
			m.meter.SetGateThreshold(m.meter.GetGateThreshold() + gateStep)
		case key.Matches(msg, lowerKey):
			m.meter.SetGateThreshold(m.meter.GetGateThreshold() - gateStep)
		}
	}
	return m, nil
}

// dbFraction maps dBFS onto [0, 1] over a 60 dB display range.
func dbFraction(db float64) float64 {
	const displayRange = 60.0
	return max(0, min(1, (db+displayRange)/displayRange))
}

func (m MeterModel) View() string {
	var sb strings.Builder
	s := m.snapshot

	sb.WriteString(titleStyle.Render("micpipe"))
	if m.device != "" {
		sb.WriteString(" " + infoStyle.Render(m.device))
	}
	sb.WriteString("\n\n")

	if s == nil || !s.Capturing {
		sb.WriteString(mutedStyle.Render("Not capturing"))
		sb.WriteString("\n")
	} else {
		fmt.Fprintf(&sb, "Volume %s %.3f\n", m.volume.ViewAs(float64(s.Volume)), s.Volume)
		fmt.Fprintf(&sb, "RMS    %s %6.1f dBFS\n", m.level.ViewAs(dbFraction(s.AveragePowerDB)), s.AveragePowerDB)
		fmt.Fprintf(&sb, "Peak   %s %6.1f dBFS\n", m.level.ViewAs(dbFraction(s.PeakPowerDB)), s.PeakPowerDB)
		sb.WriteString("\n")

		if s.Speaking {
			sb.WriteString(speakingStyle.Render("SPEAKING"))
		} else {
			sb.WriteString(mutedStyle.Render("silent"))
		}
		if s.HasPeak {
			fmt.Fprintf(&sb, "  peak at %.3fs (frame %d)", s.Peak.Time, s.Peak.FramePosition)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s\n", mutedStyle.Render(fmt.Sprintf(
			"block %d @ %d  dropped %d", s.Sequence, s.Timestamp.SampleTime, s.Dropped)))
	}

	gate := "off"
	if m.meter.GateEnabled() {
		gate = fmt.Sprintf("%.3f (%.1f dBFS)", m.meter.GetGateThreshold(),
			analysis.PowerDB(float32(m.meter.GetGateThreshold())))
	}
	fmt.Fprintf(&sb, "\nNoise gate: %s\n\n", gate)
	sb.WriteString(infoStyle.Render("g: Toggle gate • +/-: Adjust gate • q: Quit"))

	return sb.String()
}

// StartMeterUI runs the level meter until the user quits.
func StartMeterUI(m Meter, interval time.Duration, device string) error {
	p := tea.NewProgram(NewMeterModel(m, interval, device), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
