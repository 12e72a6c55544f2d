// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"micpipe/internal/analysis"
	"micpipe/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tea.Model, msgs ...tea.Msg) tea.Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

var testDevices = []audio.Device{
	{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 44100, IsDefaultInput: true},
	{ID: 2, Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
}

func newTestDeviceList() DeviceListModel {
	m := NewDeviceListModel()
	m.fetch = func() ([]audio.Device, error) { return testDevices, nil }
	return m
}

func TestDeviceListInit(t *testing.T) {
	m := newTestDeviceList()
	msg := m.Init()()
	if got, ok := msg.(devicesMsg); !ok || len(got.devices) != 3 {
		t.Fatalf("Init produced %#v", msg)
	}

	m.fetch = func() ([]audio.Device, error) { return nil, errors.New("PortAudio not initialized") }
	if _, ok := m.Init()().(errMsg); !ok {
		t.Error("fetch error should produce errMsg")
	}
}

func TestDeviceListSelectsDefaultInput(t *testing.T) {
	m := update(t, newTestDeviceList(),
		tea.WindowSizeMsg{Width: 80, Height: 40},
		devicesMsg{testDevices},
	).(DeviceListModel)

	if m.selectedIndex != 1 {
		t.Errorf("selectedIndex = %d, want the default input", m.selectedIndex)
	}
	if v := m.View(); !strings.Contains(v, "USB Mic") || !strings.Contains(v, "Audio Device List") {
		t.Errorf("view missing device list:\n%s", v)
	}
}

func TestDeviceListPickDevice(t *testing.T) {
	m := update(t, newTestDeviceList(),
		tea.WindowSizeMsg{Width: 80, Height: 40},
		devicesMsg{testDevices},
		keyMsg("down"),  // Interface
		keyMsg("enter"), // Configure
	).(DeviceListModel)

	if m.activeScreen != ConfigScreen {
		t.Fatal("enter should open the configuration screen")
	}
	if len(m.channelOptions) != 2 || m.channelIndex != 1 {
		t.Errorf("channel options = %v (index %d), want [1 2] at 2", m.channelOptions, m.channelIndex)
	}

	m = update(t, m, keyMsg("up")).(DeviceListModel)
	next, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("confirming should quit the program")
	}

	sel, ok := next.(DeviceListModel).Selection()
	if !ok || sel.Device.ID != 2 || sel.Channels != 1 {
		t.Errorf("Selection() = %+v, %v", sel, ok)
	}
}

func TestDeviceListOutputOnlyCannotBeConfigured(t *testing.T) {
	m := update(t, newTestDeviceList(),
		tea.WindowSizeMsg{Width: 80, Height: 40},
		devicesMsg{testDevices},
		keyMsg("up"), // Speakers
		keyMsg("enter"),
	).(DeviceListModel)

	if m.activeScreen != ListScreen {
		t.Error("an output-only device should not open the configuration screen")
	}
	if _, ok := m.Selection(); ok {
		t.Error("no selection expected")
	}
}

func TestDeviceListEscReturnsToList(t *testing.T) {
	m := update(t, newTestDeviceList(),
		tea.WindowSizeMsg{Width: 80, Height: 40},
		devicesMsg{testDevices},
		keyMsg("enter"),
		keyMsg("esc"),
	).(DeviceListModel)

	if m.activeScreen != ListScreen {
		t.Error("esc should return to the list")
	}
}

// fakeMeter implements Meter with plain fields.
type fakeMeter struct {
	snapshot  *audio.Snapshot
	gate      bool
	threshold float64
}

func (f *fakeMeter) Snapshot() *audio.Snapshot      { return f.snapshot }
func (f *fakeMeter) GateEnabled() bool              { return f.gate }
func (f *fakeMeter) EnableGate()                    { f.gate = true }
func (f *fakeMeter) DisableGate()                   { f.gate = false }
func (f *fakeMeter) GetGateThreshold() float64      { return f.threshold }
func (f *fakeMeter) SetGateThreshold(value float64) { f.threshold = value }

func TestMeterPollsSnapshots(t *testing.T) {
	fm := &fakeMeter{snapshot: &audio.Snapshot{}, gate: true, threshold: 0.015}
	m := NewMeterModel(fm, 100*time.Millisecond, "USB Mic")

	if !strings.Contains(m.View(), "Not capturing") {
		t.Errorf("idle view:\n%s", m.View())
	}

	fm.snapshot = &audio.Snapshot{
		Capturing:      true,
		Speaking:       true,
		Volume:         0.5,
		HasPeak:        true,
		Peak:           analysis.Peak{Time: 0.1, FramePosition: 4800, Amplitude: 0.9},
		AveragePowerDB: -9,
		PeakPowerDB:    -0.9,
		Sequence:       12,
	}
	next, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule the next poll")
	}

	view := next.(MeterModel).View()
	for _, want := range []string{"SPEAKING", "frame 4800", "block 12", "Noise gate: 0.015"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMeterGateKeys(t *testing.T) {
	fm := &fakeMeter{snapshot: &audio.Snapshot{}, gate: true, threshold: 0.015}
	m := NewMeterModel(fm, 100*time.Millisecond, "")

	update(t, m, keyMsg("+"), keyMsg("+"))
	if fm.threshold < 0.0249 || fm.threshold > 0.0251 {
		t.Errorf("threshold = %f after raising twice, want 0.025", fm.threshold)
	}
	update(t, m, keyMsg("-"))
	if fm.threshold < 0.0199 || fm.threshold > 0.0201 {
		t.Errorf("threshold = %f after lowering, want 0.020", fm.threshold)
	}

	update(t, m, keyMsg("g"))
	if fm.gate {
		t.Error("g should disable the gate")
	}
	if !strings.Contains(m.View(), "Noise gate: off") {
		t.Error("view should show the gate off")
	}
}

func TestDBFraction(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{0, 1},
		{-30, 0.5},
		{-60, 0},
		{-160, 0},
		{6, 1},
	}
	for _, tt := range tests {
		if got := dbFraction(tt.db); got != tt.want {
			t.Errorf("dbFraction(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}
