package ui

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"faqchat/pkg/chat"
	"faqchat/pkg/session"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

type senderFunc func(ctx context.Context, req chat.ChatRequest) (*chat.ChatCompletionResponse, error)

func (f senderFunc) Send(ctx context.Context, req chat.ChatRequest) (*chat.ChatCompletionResponse, error) {
	return f(ctx, req)
}

func answering(text string) senderFunc {
	return func(context.Context, chat.ChatRequest) (*chat.ChatCompletionResponse, error) {
		return &chat.ChatCompletionResponse{
			Choices: []chat.Choice{{Message: chat.ChatMessage{Role: chat.RoleAssistant, Content: chat.Text(text)}}},
		}, nil
	}
}

func newTestModel(t *testing.T, sender senderFunc) Model {
	t.Helper()
	m := New(context.Background(), session.New(sender))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(Model)
}

func plainView(m Model) string {
	return ansi.Strip(m.View().Content)
}

// runReply executes the await command returned by submit and feeds the
// result back into the model.
func runReply(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command after submit")
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		t.Fatalf("Expected tea.BatchMsg, got %T", msg)
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if reply, ok := c().(replyMsg); ok {
			updated, _ := m.Update(reply)
			return updated.(Model)
		}
	}
	t.Fatal("No reply message produced")
	return m
}

func TestModel_InitialView(t *testing.T) {
	m := newTestModel(t, answering("unused"))

	view := m.View()
	if !view.AltScreen {
		t.Error("Expected alt screen")
	}
	content := plainView(m)
	if !strings.Contains(content, "FAQ Chat") {
		t.Errorf("Expected header title, got:\n%s", content)
	}
	if !strings.Contains(content, "Hi there!") {
		t.Errorf("Expected greeting, got:\n%s", content)
	}
	if !strings.Contains(content, "Esc Quit") {
		t.Errorf("Expected footer hint, got:\n%s", content)
	}
}

func TestModel_SubmitAndReply(t *testing.T) {
	m := newTestModel(t, answering("Use the reset link on the login page."))

	m.input.SetValue("How do I reset my password?")
	updated, cmd := m.Update(testKeyEnter)
	m = updated.(Model)

	if !m.sending {
		t.Fatal("Expected model to be sending")
	}
	if m.input.Value() != "" {
		t.Errorf("Expected input to be cleared, got %q", m.input.Value())
	}
	if m.input.Focused() {
		t.Error("Expected input to be disabled while sending")
	}
	if !strings.Contains(plainView(m), "typing") {
		t.Error("Expected typing indicator while sending")
	}

	again, againCmd := m.Update(testKeyEnter)
	if againCmd != nil {
		t.Error("Enter must be ignored while sending")
	}
	m = again.(Model)

	m = runReply(t, m, cmd)

	if m.sending {
		t.Error("Expected sending to end after reply")
	}
	if !m.input.Focused() {
		t.Error("Expected input focus to return after reply")
	}
	if m.lastAnswer != "Use the reset link on the login page." {
		t.Errorf("Unexpected last answer %q", m.lastAnswer)
	}
	content := plainView(m)
	if !strings.Contains(content, "How do I reset my password?") {
		t.Errorf("Expected question in transcript, got:\n%s", content)
	}
	if !strings.Contains(content, "Use the reset link on the login page.") {
		t.Errorf("Expected answer in transcript, got:\n%s", content)
	}
	if strings.Contains(content, "typing") {
		t.Error("Typing indicator should be gone after reply")
	}
}

func TestModel_FailureReplyShown(t *testing.T) {
	m := newTestModel(t, func(context.Context, chat.ChatRequest) (*chat.ChatCompletionResponse, error) {
		return nil, &chat.HTTPError{StatusCode: 500, Body: "Internal Server Error"}
	})

	m.input.SetValue("anything")
	updated, cmd := m.Update(testKeyEnter)
	m = runReply(t, updated.(Model), cmd)

	content := plainView(m)
	if !strings.Contains(content, "Sorry, something went wrong.") {
		t.Errorf("Expected generic failure reply, got:\n%s", content)
	}
	if m.lastAnswer != "" {
		t.Errorf("Failure text must not become the copy target, got %q", m.lastAnswer)
	}
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m := newTestModel(t, answering("unused"))

	m.input.SetValue("   ")
	updated, cmd := m.Update(testKeyEnter)
	m = updated.(Model)

	if cmd != nil || m.sending {
		t.Fatal("Blank input must not be sent")
	}
}

func TestModel_EscQuitsAndClosesSession(t *testing.T) {
	sess := session.New(answering("unused"))
	m := New(context.Background(), sess)

	_, cmd := m.Update(testKeyEsc)
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("Expected tea.QuitMsg")
	}
	if _, err := sess.Submit("late"); err != session.ErrClosed {
		t.Fatalf("Expected session to be closed, got %v", err)
	}
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newTestModel(t, answering("unused"))

	_, cmd := m.Update(testKeyCtrlC)
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("Expected tea.QuitMsg")
	}
}

func TestModel_ScrollKeysDoNotReachInput(t *testing.T) {
	m := newTestModel(t, answering("unused"))
	m.input.SetValue("draft")

	updated, _ := m.Update(testKeyUp)
	m = updated.(Model)

	if m.input.Value() != "draft" {
		t.Fatalf("Expected draft to survive scrolling, got %q", m.input.Value())
	}
}

func TestModel_CopyLastAnswer(t *testing.T) {
	m := newTestModel(t, answering("copy me"))
	var buf bytes.Buffer
	m.clipboardOut = &buf

	if _, cmd := m.Update(testKeyCtrlY); cmd != nil {
		t.Fatal("Nothing to copy before the first answer")
	}

	m.input.SetValue("question")
	updated, cmd := m.Update(testKeyEnter)
	m = runReply(t, updated.(Model), cmd)

	_, cmd = m.Update(testKeyCtrlY)
	if cmd == nil {
		t.Fatal("Expected copy command")
	}
	cmd()

	encoded := base64.StdEncoding.EncodeToString([]byte("copy me"))
	if !strings.Contains(buf.String(), "]52;") || !strings.Contains(buf.String(), encoded) {
		t.Fatalf("Expected OSC52 sequence with payload, got %q", buf.String())
	}
}

func TestModel_TypingIgnoredWhileSending(t *testing.T) {
	m := newTestModel(t, answering("ok"))
	m.input.SetValue("first")
	updated, _ := m.Update(testKeyEnter)
	m = updated.(Model)

	updated, _ = m.Update(newTextKeyPressMsg("x"))
	m = updated.(Model)

	if m.input.Value() != "" {
		t.Fatalf("Expected input to stay empty while sending, got %q", m.input.Value())
	}
}

func TestModel_ResizeSmall(t *testing.T) {
	m := newTestModel(t, answering("ok"))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 2, Height: 2})
	m = updated.(Model)

	if m.View().Content == "" {
		t.Fatal("Expected a view even for a tiny window")
	}
}

func TestSafeRender_RecoversPanic(t *testing.T) {
	out := safeRender(func() string { panic("boom") }, 60)

	if !strings.Contains(ansi.Strip(out), "Something went wrong while drawing the chat.") {
		t.Fatalf("Expected fallback screen, got %q", out)
	}
	if got := safeRender(func() string { return "fine" }, 60); got != "fine" {
		t.Fatalf("Expected passthrough, got %q", got)
	}
}
