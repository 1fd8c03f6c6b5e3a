// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jetilab/exbuscope/pkg/capture"
	"github.com/jetilab/exbuscope/pkg/exbus"
	"github.com/spf13/cobra"
)

var tuiFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Live bus dashboard",
	Long: `Full-screen dashboard showing channel values, discovered telemetry sensors,
decode statistics, and a scrolling event log.

Sensor labels arrive in EX text sub-packets; values in data sub-packets are
matched to them by sensor id as they appear.

With --file, replays a capture instead of connecting live.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVarP(&tuiFile, "file", "f", "", "Replay a capture file instead of a live connection")
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Discovered telemetry sensor
type sensorState struct {
	id          int
	description string
	unit        string
	payload     []byte
	dataType    int
	lastSeen    time.Time
}

// Messages
type tuiTickMsg time.Time
type busEventsMsg []exbus.Event
type connectionLostMsg struct{ err error }

// TUI model
type tuiModel struct {
	connInfo string
	stats    *exbus.Statistics

	channels    []float64
	channelTime time.Time

	sensors map[int]*sensorState

	eventLog      []eventLogEntry
	maxLogEntries int
	logView       viewport.Model
	logReady      bool

	width    int
	height   int
	quitting bool
	lostErr  error
}

func initialTUIModel(connInfo string) tuiModel {
	return tuiModel{
		connInfo:      connInfo,
		stats:         exbus.NewStatistics(),
		sensors:       make(map[int]*sensorState),
		maxLogEntries: 200,
		width:         80,
		height:        24,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(
		tuiTickCmd(),
		tea.EnterAltScreen,
	)
}

func tuiTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			m.logView.LineUp(1)
		case "down", "j":
			m.logView.LineDown(1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLog()

	case tuiTickMsg:
		m.stats.CalculateRates()
		return m, tuiTickCmd()

	case connectionLostMsg:
		m.lostErr = msg.err
		m.addLogEntry("connection lost: "+msg.err.Error(), true)

	case busEventsMsg:
		for _, e := range msg {
			verrs := exbus.ValidateEvent(e)
			m.stats.Update([]exbus.Event{e}, verrs)
			m.absorbEvent(e)
			for _, verr := range verrs {
				m.addLogEntry(verr.Error(), true)
			}
		}
	}

	return m, nil
}

// absorbEvent folds one decoded event into the dashboard state.
func (m *tuiModel) absorbEvent(e exbus.Event) {
	switch e.Kind {
	case exbus.KindChannelValues:
		if values, ok := e.Fields["values"].([]float64); ok {
			m.channels = values
			m.channelTime = e.End
		}

	case exbus.KindDataEntry:
		id, _ := e.Int("id")
		s := m.sensor(id)
		s.payload, _ = e.Fields["payload"].([]byte)
		s.dataType, _ = e.Int("type")
		s.lastSeen = e.End

	case exbus.KindTextEntry:
		id, _ := e.Int("id")
		s := m.sensor(id)
		s.description, _ = e.Str("description")
		s.unit, _ = e.Str("unit")
		s.lastSeen = e.End

	case exbus.KindLengthError, exbus.KindProtocolError:
		m.addLogEntry(exbus.DescribeEvent(e), true)
	}
}

func (m *tuiModel) sensor(id int) *sensorState {
	s, ok := m.sensors[id]
	if !ok {
		s = &sensorState{id: id}
		m.sensors[id] = s
		m.addLogEntry(fmt.Sprintf("discovered sensor id %d", id), false)
	}
	return s
}

func (m *tuiModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
	m.refreshLog()
}

func (m *tuiModel) resizeLog() {
	logHeight := m.height - 18
	if logHeight < 5 {
		logHeight = 5
	}
	if !m.logReady {
		m.logView = viewport.New(m.width-4, logHeight)
		m.logReady = true
	} else {
		m.logView.Width = m.width - 4
		m.logView.Height = logHeight
	}
	m.refreshLog()
}

func (m *tuiModel) refreshLog() {
	if !m.logReady {
		return
	}
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	var sb strings.Builder
	for _, entry := range m.eventLog {
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			fmt.Fprintf(&sb, "%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message))
		} else {
			fmt.Fprintf(&sb, "%s %s\n", headerStyle.Render(timestamp), infoStyle.Render("ℹ "+entry.message))
		}
	}
	m.logView.SetContent(sb.String())
	m.logView.GotoBottom()
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("EXBUSCOPE - BUS DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	if m.lostErr != nil {
		s.WriteString(errorStyle.Render("✗ Connection lost"))
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	statsContent := fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.FramesCompleted)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.LengthErrors+m.stats.ProtocolErrors)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		labelStyle.Render("Sensors:"), valueStyle.Render(fmt.Sprintf("%d", len(m.sensors))),
	)
	s.WriteString(boxStyle.Render(statsContent))
	s.WriteString("\n\n")

	// Channels
	s.WriteString(labelStyle.Render("Channels:"))
	if !m.channelTime.IsZero() {
		s.WriteString(headerStyle.Render(fmt.Sprintf("  (last frame %s)", m.channelTime.Format("15:04:05.000"))))
	}
	s.WriteString("\n")
	if len(m.channels) == 0 {
		s.WriteString(boxStyle.Render(headerStyle.Render("(no channel data yet)")))
	} else {
		var ch strings.Builder
		for i, v := range m.channels {
			fmt.Fprintf(&ch, "%s %s   ",
				labelStyle.Render(fmt.Sprintf("Ch%-2d", i+1)),
				valueStyle.Render(fmt.Sprintf("%4.0fus", v)))
			if (i+1)%4 == 0 {
				ch.WriteString("\n")
			}
		}
		s.WriteString(boxStyle.Render(strings.TrimRight(ch.String(), " \n")))
	}
	s.WriteString("\n\n")

	// Sensors
	if len(m.sensors) > 0 {
		s.WriteString(labelStyle.Render("Telemetry Sensors:"))
		s.WriteString("\n")

		ids := make([]int, 0, len(m.sensors))
		for id := range m.sensors {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		var sensorContent strings.Builder
		for _, id := range ids {
			sensor := m.sensors[id]
			name := sensor.description
			if name == "" {
				name = fmt.Sprintf("sensor %d", sensor.id)
			}
			value := headerStyle.Render("(no value yet)")
			if sensor.payload != nil {
				value = valueStyle.Render(fmt.Sprintf("% X", sensor.payload))
				if sensor.unit != "" {
					value += " " + headerStyle.Render(sensor.unit)
				}
				value += " " + headerStyle.Render(fmt.Sprintf("@ %s", sensor.lastSeen.Format("15:04:05.000")))
			}
			fmt.Fprintf(&sensorContent, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-20s", name)), value)
		}
		s.WriteString(boxStyle.Render(strings.TrimRight(sensorContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	if m.logReady {
		s.WriteString(boxStyle.Width(m.width - 4).Render(m.logView.View()))
	} else if len(m.eventLog) == 0 {
		s.WriteString(boxStyle.Render(headerStyle.Render("  (no events yet)")))
	}

	return s.String()
}

func runTUI(cmd *cobra.Command, args []string) error {
	if tuiFile != "" {
		return runTUIFromCapture(tuiFile)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	p := tea.NewProgram(initialTUIModel(connInfo))

	decoder := exbus.NewDecoder()
	go func() {
		err := streamBytes(conn, func(b byte, start, end time.Time) error {
			if events := decoder.DecodeByte(b, start, end); len(events) > 0 {
				p.Send(busEventsMsg(events))
			}
			return nil
		})
		p.Send(connectionLostMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

func runTUIFromCapture(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}

	p := tea.NewProgram(initialTUIModel("Capture: " + path))

	decoder := exbus.NewDecoder()
	go func() {
		for {
			s, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				p.Send(connectionLostMsg{err: err})
				return
			}
			if events := decoder.DecodeByte(s.Byte, s.Start(), s.End()); len(events) > 0 {
				p.Send(busEventsMsg(events))
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
