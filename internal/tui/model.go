package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/skypro1111/interview-service/internal/interview"
	"github.com/skypro1111/interview-service/internal/live"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

// LiveSession is the read side of a live controller plus Conclude.
type LiveSession interface {
	Events() <-chan live.Event
	Done() <-chan struct{}
	Snapshot() live.Snapshot
	Conclude() (*live.Result, error)
}

// SaveFunc analyzes and stores a concluded session.
type SaveFunc func(result *live.Result) (*session.Session, error)

// Model is the bubbletea model for a live interview.
type Model struct {
	live     LiveSession
	save     SaveFunc
	settings session.Settings

	// Session state
	state    live.State
	err      error
	turns    []transcript.Turn
	partial  *transcript.Turn
	level    float64
	speaking bool
	elapsed  time.Duration

	// Wrap-up
	concluding bool
	saving     bool
	finished   bool
	discarded  bool
	saved      *session.Session
	saveErr    error

	// UI state
	width  int
	height int
	scroll int
	follow bool
}

// NewModel creates a model following ls. save is called once with the
// concluded result.
func NewModel(ls LiveSession, settings session.Settings, save SaveFunc) Model {
	return Model{
		live:     ls,
		save:     save,
		settings: settings,
		state:    ls.Snapshot().State,
		follow:   true,
	}
}

// Saved returns the stored session once the program has finished.
func (m Model) Saved() *session.Session {
	return m.saved
}

// Err returns the error that ended the session or its save, if any.
func (m Model) Err() error {
	if m.saveErr != nil {
		return m.saveErr
	}
	return m.err
}

// Init starts listening to the controller feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEventCmd(m.live), tickCmd())
}

// waitForEventCmd reads the next controller event.
func waitForEventCmd(ls LiveSession) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-ls.Events():
			return LiveEventMsg{Event: ev}
		case <-ls.Done():
			return LiveDoneMsg{}
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func concludeCmd(ls LiveSession) tea.Cmd {
	return func() tea.Msg {
		result, err := ls.Conclude()
		return ConcludedMsg{Result: result, Err: err}
	}
}

func saveCmd(save SaveFunc, result *live.Result) tea.Cmd {
	return func() tea.Msg {
		sess, err := save(result)
		return SavedMsg{Session: sess, Err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case LiveEventMsg:
		m.handleEvent(msg.Event)
		return m, waitForEventCmd(m.live)

	case LiveDoneMsg:
		snap := m.live.Snapshot()
		m.state = snap.State
		if snap.Err != nil {
			m.err = snap.Err
		}
		m.partial = nil
		if m.state == live.StateFailed {
			m.finished = true
		}
		return m, nil

	case TickMsg:
		if m.finished || m.concluding {
			return m, nil
		}
		m.elapsed = m.live.Snapshot().Elapsed
		return m, tickCmd()

	case ConcludedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.finished = true
			return m, nil
		}
		m.state = live.StateEnded
		m.elapsed = msg.Result.Duration
		m.turns = msg.Result.Turns
		m.partial = nil
		if len(msg.Result.Turns) == 0 {
			m.discarded = true
			m.finished = true
			return m, nil
		}
		m.saving = true
		return m, saveCmd(m.save, msg.Result)

	case SavedMsg:
		m.saving = false
		m.finished = true
		m.saved = msg.Session
		m.saveErr = msg.Err
		return m, nil
	}

	return m, nil
}

// handleEvent applies one controller event.
func (m *Model) handleEvent(ev live.Event) {
	switch ev.Kind {
	case live.EventStateChanged:
		m.state = ev.State
		if ev.Err != nil {
			m.err = ev.Err
		}
		if m.state.Terminal() {
			m.partial = nil
		}

	case live.EventTurn:
		m.turns = append(m.turns, ev.Turn)
		m.partial = nil
		if m.follow {
			m.scroll = 0
		}

	case live.EventPartial:
		turn := ev.Turn
		m.partial = &turn

	case live.EventLevel:
		m.level = ev.Level
		m.speaking = ev.Speaking
	}
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.saving {
			return m, nil
		}
		if !m.state.Terminal() && !m.concluding {
			// Leave without saving; Conclude still releases the devices
			ls := m.live
			return m, tea.Sequence(func() tea.Msg {
				ls.Conclude()
				return nil
			}, tea.Quit)
		}
		return m, tea.Quit

	case KeySpace, KeyEnter:
		if m.finished {
			return m, tea.Quit
		}
		if m.concluding || m.state.Terminal() {
			return m, nil
		}
		m.concluding = true
		return m, concludeCmd(m.live)

	case KeyUp:
		m.follow = false
		m.scroll++
		return m, nil

	case KeyDown:
		if m.scroll > 0 {
			m.scroll--
		}
		if m.scroll == 0 {
			m.follow = true
		}
		return m, nil
	}

	return m, nil
}

// View renders the live screen.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))
	sections = append(sections, m.renderTranscript(width))
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))

	if m.err != nil || m.saveErr != nil {
		sections = append(sections, m.renderErrorBar())
	}
	if line := m.renderOutcome(); line != "" {
		sections = append(sections, line)
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("INTERVIEW")
	voice := interview.VoiceFor(m.settings.Language, m.settings.VoiceGender)
	info := fmt.Sprintf(" — %s, %s voice, %s mode",
		interview.LanguageName(m.settings.Language), voice.Name, strings.ToLower(string(m.settings.InterviewMode)))
	return title + DimStyle.Render(info)
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.state {
	case live.StateActive:
		dot = LiveDotStyle.Render("● LIVE")
	case live.StateConnecting:
		dot = SpinnerStyle.Render("⟳ CONNECTING")
	case live.StateFailed:
		dot = ErrorStyle.Render("✕ FAILED")
	case live.StateEnded:
		dot = IdleDotStyle.Render("○ ENDED")
	default:
		dot = IdleDotStyle.Render("○ IDLE")
	}

	clock := "  " + TimestampStyle.Render(transcript.FormatTimestamp(m.elapsed.Seconds()))

	var level string
	if m.state == live.StateActive {
		level = "  " + renderLevelMeter("MIC", m.level)
		if m.speaking {
			level += " " + SpeakingBadgeStyle.Render("speaking")
		}
	}

	var wrapUp string
	if m.concluding && !m.finished {
		if m.saving {
			wrapUp = "  " + SpinnerStyle.Render("⟳ analyzing")
		} else {
			wrapUp = "  " + SpinnerStyle.Render("⟳ ending")
		}
	}

	return dot + clock + level + wrapUp
}

// LevelFraction maps dBFS onto a 0..1 meter scale with a 60 dB range.
func LevelFraction(dbfs float64) float64 {
	f := (dbfs + 60) / 60
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func renderLevelMeter(label string, dbfs float64) string {
	const barLen = 8
	filled := int(LevelFraction(dbfs) * barLen)

	var bar string
	for i := 0; i < barLen; i++ {
		if i < filled {
			pct := float64(i) / float64(barLen)
			if pct > 0.6 {
				bar += LevelYellowStyle.Render("█")
			} else {
				bar += LevelGreenStyle.Render("█")
			}
		} else {
			bar += LevelGrayStyle.Render("░")
		}
	}
	return DimStyle.Render(label) + " " + bar
}

func (m Model) transcriptHeight() int {
	if m.height == 0 {
		return 16
	}
	// header, status, two dividers, error/outcome, footer
	return max(m.height-7, 3)
}

func (m Model) renderTranscript(width int) string {
	var lines []string
	for _, turn := range m.turns {
		lines = append(lines, RenderTurnLines(turn, width, false)...)
	}
	if m.partial != nil {
		lines = append(lines, RenderTurnLines(*m.partial, width, true)...)
	}

	if len(lines) == 0 {
		switch m.state {
		case live.StateConnecting, live.StateIdle:
			lines = append(lines, DimStyle.Render("Connecting to the interviewer..."))
		case live.StateActive:
			lines = append(lines, DimStyle.Render("Listening. The interviewer will start shortly."))
		}
	}

	height := m.transcriptHeight()
	end := len(lines) - m.scroll
	if end < 0 {
		end = 0
	}
	start := max(end-height, 0)
	visible := lines[start:end]
	for len(visible) < height {
		visible = append(visible, "")
	}
	return strings.Join(visible, "\n")
}

// RenderTurnLines renders one turn as wrapped "[mm:ss] Speaker: text" lines.
func RenderTurnLines(turn transcript.Turn, width int, partial bool) []string {
	prefix := TimestampStyle.Render("["+turn.Timestamp()+"]") + " " + speakerStyle(turn.Speaker).Render(string(turn.Speaker)+":") + " "
	indent := lipgloss.Width(prefix)

	text := turn.Text
	wrapped := wrapText(text, max(width-indent, 10))

	lines := make([]string, len(wrapped))
	for i, line := range wrapped {
		if partial {
			line = PartialTextStyle.Render(line)
		}
		if i == 0 {
			lines[i] = prefix + line
		} else {
			lines[i] = strings.Repeat(" ", indent) + line
		}
	}
	return lines
}

func speakerStyle(speaker transcript.Speaker) lipgloss.Style {
	if speaker == transcript.SpeakerAI {
		return AISpeakerStyle
	}
	return IntervieweeSpeakerStyle
}

func (m Model) renderErrorBar() string {
	err := m.err
	if m.saveErr != nil {
		err = m.saveErr
	}
	return ErrorStyle.Render("Error: ") + ErrorTextStyle.Render(err.Error())
}

func (m Model) renderOutcome() string {
	switch {
	case m.discarded:
		return DimStyle.Render("Nothing was said; the session was discarded.")
	case m.saved != nil && m.saved.Degraded:
		return DegradedBadgeStyle.Render("Saved without analysis") + DimStyle.Render(" session "+m.saved.ID)
	case m.saved != nil:
		return SpeakingBadgeStyle.Render("Saved") + DimStyle.Render(" session "+m.saved.ID)
	case m.state == live.StateFailed:
		return DimStyle.Render("The session failed and its transcript was discarded.")
	}
	return ""
}

func (m Model) renderFooter() string {
	var parts []string

	if !m.finished && !m.concluding && !m.state.Terminal() {
		parts = append(parts, FooterKeyStyle.Render("Space")+FooterDescStyle.Render(" End interview"))
		parts = append(parts, FooterKeyStyle.Render("↑↓")+FooterDescStyle.Render(" Scroll"))
		parts = append(parts, FooterKeyStyle.Render("q")+FooterDescStyle.Render(" Abort"))
	} else if !m.saving {
		parts = append(parts, FooterKeyStyle.Render("q")+FooterDescStyle.Render(" Quit"))
	}

	return strings.Join(parts, "  ")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len([]rune(current))+1+len([]rune(word)) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
