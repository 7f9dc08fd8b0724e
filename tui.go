package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aitranscriber/realtime"
)

// TUI message types
type RecordingStartMsg struct{ Device string }
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type NoVoiceWarningMsg struct{}
type VoiceClearedMsg struct{}
type SegmentMsg struct{ Update realtime.Update }
type TranscriptMsg struct {
	Text        string
	Translation string
}
type StatusMsg struct{ Text string }
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
)

// controls are the app actions bound to keys.
type controls struct {
	toggle     func()
	openFolder func() error
	reload     func() error
}

type tuiModel struct {
	controls controls

	state             tuiState
	frame             int
	recordingDuration float64
	audioLevel        float64
	noVoice           bool
	width, height     int
	modeLine          string
	deviceLine        string
	status            string
	segments          int
	transcript        string
	translation       string
}

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	meterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func NewTUIProgram(c controls) *tea.Program {
	return tea.NewProgram(tuiModel{controls: c}, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// actionCmd runs fn and reports its outcome on the status line.
func actionCmd(fn func() error, ok string) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return StatusMsg{Text: "Error: " + err.Error()}
		}
		return StatusMsg{Text: ok}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "r":
			if m.controls.toggle != nil {
				go m.controls.toggle()
			}
		case "o":
			if m.controls.openFolder != nil {
				return m, actionCmd(m.controls.openFolder, "Opened transcripts folder.")
			}
		case "l":
			if m.controls.reload != nil {
				return m, actionCmd(m.controls.reload, "Settings reloaded.")
			}
		case "c":
			text := m.transcript
			if m.translation != "" && m.translation != statusNoTranslation {
				text += "\n\n" + m.translation
			}
			if strings.TrimSpace(text) == "" {
				m.status = "Nothing to copy yet."
				break
			}
			return m, actionCmd(func() error { return clipboard.WriteAll(text) }, "Copied to clipboard.")
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.audioLevel = 0
		m.noVoice = false
		m.segments = 0
		m.transcript = ""
		m.translation = ""
		m.status = "Recording from " + msg.Device

	case RecordingStopMsg:
		m.state = tuiStateIdle
		m.audioLevel = 0
		m.noVoice = false
		m.status = "Finalizing..."

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
		}

	case NoVoiceWarningMsg:
		m.noVoice = true

	case VoiceClearedMsg:
		m.noVoice = false

	case SegmentMsg:
		m.segments = msg.Update.Index
		m.transcript = msg.Update.FullTranscript
		m.translation = msg.Update.FullTranslation

	case TranscriptMsg:
		m.transcript = msg.Text
		m.translation = msg.Translation

	case StatusMsg:
		m.status = msg.Text

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func levelMeter(level float64, width int) string {
	n := int(level * 10 * float64(width))
	n = max(0, min(n, width))
	return meterStyle.Render(strings.Repeat("█", n)) + idleStyle.Render(strings.Repeat("·", width-n))
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var header []string
	if m.state == tuiStateRecording {
		dot := "●"
		if m.frame/8%2 == 1 {
			dot = " "
		}
		header = append(header, recStyle.Render(fmt.Sprintf("%s REC %.1fs", dot, m.recordingDuration))+"  "+levelMeter(m.audioLevel, 20))
		if m.noVoice {
			header = append(header, warnStyle.Render("  ⚠ no voice detected"))
		}
	} else {
		header = append(header, idleStyle.Render("○ STANDBY"))
	}
	if m.modeLine != "" {
		header = append(header, infoStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		header = append(header, idleStyle.Render(m.deviceLine))
	}

	panelWidth := (m.width - 4) / 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	inner := panelWidth - 4
	bodyHeight := m.height - len(header) - 6
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	transcriptTitle := "Transcript"
	if m.segments > 0 {
		transcriptTitle = fmt.Sprintf("Transcript (%d segments)", m.segments)
	}
	left := renderPanel(transcriptTitle, m.transcript, "Nothing transcribed yet", inner, bodyHeight)
	right := renderPanel("Translation", m.translation, "Nothing translated yet", inner, bodyHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(panelWidth).Render(left),
		panelStyle.Width(panelWidth).Render(right),
	)

	help := helpKeyStyle.Render("space") + helpStyle.Render(" record  ") +
		helpKeyStyle.Render("c") + helpStyle.Render(" copy  ") +
		helpKeyStyle.Render("o") + helpStyle.Render(" open folder  ") +
		helpKeyStyle.Render("l") + helpStyle.Render(" reload settings  ") +
		helpKeyStyle.Render("q") + helpStyle.Render(" quit  ") +
		helpStyle.Render("aitranscriber "+version)

	return strings.Join(header, "\n") + "\n" + body + "\n" + infoStyle.Render(m.status) + "\n" + help
}

// renderPanel shows the tail of text that fits in height lines.
func renderPanel(title, text, placeholder string, width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")
	if strings.TrimSpace(text) == "" {
		b.WriteString(idleStyle.Render(placeholder))
		return b.String()
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapText(para, width)...)
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for i, line := range lines {
		b.WriteString(textStyle.Render(line))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// wrapText splits text on spaces into lines of at most width runes.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	runes := []rune(text)
	for len(runes) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = []rune(strings.TrimLeft(string(runes[splitAt:]), " "))
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}

// tuiSink forwards events to a running Bubble Tea program.
type tuiSink struct {
	p *tea.Program
}

func (t tuiSink) RecordingStart(device string)        { t.p.Send(RecordingStartMsg{Device: device}) }
func (t tuiSink) RecordingStop()                      { t.p.Send(RecordingStopMsg{}) }
func (t tuiSink) RecordingTick(duration float64)      { t.p.Send(RecordingTickMsg{Duration: duration}) }
func (t tuiSink) AudioLevel(level float64)            { t.p.Send(AudioLevelMsg{Level: level}) }
func (t tuiSink) NoVoiceWarning()                     { t.p.Send(NoVoiceWarningMsg{}) }
func (t tuiSink) VoiceCleared()                       { t.p.Send(VoiceClearedMsg{}) }
func (t tuiSink) Segment(u realtime.Update)           { t.p.Send(SegmentMsg{Update: u}) }
func (t tuiSink) Transcript(text, translation string) { t.p.Send(TranscriptMsg{Text: text, Translation: translation}) }
func (t tuiSink) Status(text string)                  { t.p.Send(StatusMsg{Text: text}) }
func (t tuiSink) ModeLine(text string)                { t.p.Send(ModeLineMsg{Text: text}) }
func (t tuiSink) DeviceLine(text string)              { t.p.Send(DeviceLineMsg{Text: text}) }
