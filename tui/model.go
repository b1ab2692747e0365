package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/segchat/agent"
	"github.com/fwojciec/segchat/service"
)

var _ tea.Model = Model{}

type lineKind int

const (
	lineUser lineKind = iota
	lineAssistant
	lineImage
)

type line struct {
	kind lineKind
	text string
}

// Model is the Bubble Tea model for the segmentation chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	turn   TurnFunc
	styles Styles

	lines   []line
	running bool
	cancel  context.CancelFunc
	err     error
	ready   bool
}

// New creates a TUI Model that submits user turns through turn.
func New(turn TurnFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe what to segment..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:  ti,
		turn:   turn,
		styles: NewStyles(),
	}
}

// Running returns whether a turn is currently in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TurnDoneMsg:
		m.running = false
		m.cancel = nil
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.err = msg.Err
			}
		} else {
			m = m.appendResponse(msg.Resp)
		}
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, m.Input.Focus()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusH := 1
	borderH := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusH - borderH
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.Viewport.SetContent(m.renderContent())
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)
	}

	if !m.running {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil

	m.lines = append(m.lines, line{kind: lineUser, text: text})
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.Input.Blur()

	return m, startTurn(ctx, m.turn, text)
}

// appendResponse adds the assistant's answer and image notices to the
// transcript.
func (m Model) appendResponse(resp *service.ChatResponse) Model {
	answer := resp.Answer
	if resp.State == agent.TurnTimedOut {
		answer = agent.TimeoutAnswer
	}
	m.lines = append(m.lines, line{kind: lineAssistant, text: answer})
	if n := len(resp.Images); n > 0 {
		m.lines = append(m.lines, line{
			kind: lineImage,
			text: fmt.Sprintf("[%d result image(s) rendered]", n),
		})
	}
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		switch l.kind {
		case lineUser:
			b.WriteString(m.styles.UserMsg.Render("> " + l.text))
		case lineAssistant:
			b.WriteString(m.styles.Assistant.Render(l.text))
		case lineImage:
			b.WriteString(m.styles.Image.Render(l.text))
		}
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.running {
		return m.styles.Muted.Render("Segmenting...")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
}

// startTurn runs the turn in a goroutine-backed command and reports the
// outcome as a TurnDoneMsg.
func startTurn(ctx context.Context, turn TurnFunc, text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := turn(ctx, text)
		return TurnDoneMsg{Resp: resp, Err: err}
	}
}
