package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"faqchat/pkg/chat"
	"faqchat/pkg/session"
	"faqchat/pkg/ui/styles"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

const (
	headerTitle    = "FAQ Chat"
	footerHint     = "Enter Send | Up/Down Scroll | Ctrl+Y Copy | Esc Quit"
	inputHeight    = 3
	chromeHeight   = 3 // header + separator + footer
	placeholder    = "Type your question..."
	typingLabel    = "typing"
	renderFallback = "Something went wrong while drawing the chat.\nPress Esc to quit."
)

// replyMsg carries the outcome of an awaited turn back into Update.
type replyMsg struct {
	reply chat.ChatMessage
	err   error
}

// Model is the Bubble Tea model of the chat window.
type Model struct {
	ctx     context.Context
	session *session.Session

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width   int
	height  int
	sending bool

	lastAnswer   string
	clipboardOut io.Writer
}

// New creates the chat window for sess. Requests inherit ctx.
func New(ctx context.Context, sess *session.Session) Model {
	input := textarea.New()
	input.Placeholder = placeholder
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.Focus()

	m := Model{
		ctx:          ctx,
		session:      sess,
		viewport:     viewport.New(),
		input:        input,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Ellipsis), spinner.WithStyle(styles.TypingStyle)),
		width:        80,
		height:       24,
		clipboardOut: os.Stdout,
	}
	m.resize(m.width, m.height)
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case replyMsg:
		m = m.handleReply(msg)
		cmd := m.input.Focus()
		return m, cmd

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.session.Close()
		return m, tea.Quit

	case "enter":
		if m.sending {
			return m, nil
		}
		return m.submit()

	case "ctrl+y":
		return m, m.copyLastAnswer()

	case "up", "down", "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.sending {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	turn, err := m.session.Submit(m.input.Value())
	if err != nil {
		if !errors.Is(err, session.ErrEmptyMessage) {
			slog.Debug("ui_submit_rejected", "error", err)
		}
		return m, nil
	}

	m.input.Reset()
	m.input.Blur()
	m.sending = true
	m.refresh()

	ctx := m.ctx
	await := func() tea.Msg {
		reply, err := turn.Await(ctx)
		return replyMsg{reply: reply, err: err}
	}
	return m, tea.Batch(await, m.spinner.Tick)
}

func (m Model) handleReply(msg replyMsg) Model {
	m.sending = false
	if msg.err == nil {
		if text, ok := chat.Normalize(msg.reply.Content); ok {
			m.lastAnswer = text
		}
	} else if !errors.Is(msg.err, chat.ErrAborted) {
		slog.Info("ui_reply_failed", "error", msg.err)
	}
	m.refresh()
	return m
}

func (m Model) copyLastAnswer() tea.Cmd {
	text := m.lastAnswer
	if text == "" {
		return nil
	}
	out := m.clipboardOut
	return func() tea.Msg {
		_, _ = fmt.Fprint(out, osc52.New(text))
		return nil
	}
}

func (m *Model) resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	m.width = width
	m.height = height

	vpHeight := height - chromeHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.SetWidth(width)
	m.viewport.SetHeight(vpHeight)
	m.input.SetWidth(width)
	m.refresh()
}

// refresh re-renders the transcript, keeping the view pinned to the
// bottom unless the user scrolled away.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom()
	pending := ""
	if m.sending {
		pending = typingLabel + m.spinner.View()
	}
	m.viewport.SetContent(renderTranscript(m.session.Transcript(), m.width, pending))
	if follow || m.sending {
		m.viewport.GotoBottom()
	}
}

func (m Model) View() tea.View {
	v := tea.NewView(safeRender(m.render, m.width))
	v.AltScreen = true
	v.WindowTitle = headerTitle
	return v
}

func (m Model) render() string {
	header := styles.HeaderStyle.Render(truncateToWidth(headerTitle, m.width-2))
	separator := styles.SeparatorStyle.Render(strings.Repeat("─", m.width))
	footer := styles.FooterStyle.Render(truncateToWidth(footerHint, m.width))

	return strings.Join([]string{
		padStyled(header, m.width),
		m.viewport.View(),
		separator,
		m.input.View(),
		footer,
	}, "\n")
}

// safeRender runs render and substitutes a fallback screen if it panics.
func safeRender(render func() string, width int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ui_render_panic", "panic", fmt.Sprint(r))
			box := styles.FallbackBoxStyle
			if width > 4 {
				box = box.Width(width)
			}
			out = box.Render(styles.ErrorStyle.Render(renderFallback))
		}
	}()
	return render()
}
