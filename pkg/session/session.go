package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"faqchat/pkg/chat"
	"faqchat/pkg/transport"
)

// State is the send state of a session.
type State int

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a request is already in flight")
	ErrClosed       = errors.New("session is closed")
	ErrTurnAwaited  = errors.New("turn already awaited")
)

// Replies shown to the user in place of an answer.
const (
	FallbackReply     = `This question is not in the FAQ. Type in "Questions list" to see the list.`
	TimeoutReply      = "Request timeout. Please try again."
	HTTPErrorReply    = "Sorry, something went wrong. Please try again later."
	NetworkErrorReply = "Could not reach the FAQ service. Please check your connection and try again."
)

// DefaultGreetings open every new conversation.
var DefaultGreetings = []string{
	"Hi there! Please ask anything you'd like to know. I'll answer if your question is similar enough to one of the questions on the FAQ list.",
	`You can ask something like "How do I reset my password?" or just "Password reset".`,
}

// Option configures a Session.
type Option func(*Session)

// WithBuilder replaces the default request builder.
func WithBuilder(b chat.Builder) Option {
	return func(s *Session) { s.builder = b }
}

// WithGreetings replaces the opening turns. No arguments means none.
func WithGreetings(greetings ...string) Option {
	return func(s *Session) { s.greetings = greetings }
}

// Session owns a conversation transcript and allows one request in
// flight at a time.
type Session struct {
	sender    transport.Sender
	builder   chat.Builder
	greetings []string

	mu         sync.Mutex
	transcript []chat.ChatMessage
	state      State
	cancel     context.CancelFunc
	closed     bool
}

// New creates a session that sends through sender.
func New(sender transport.Sender, opts ...Option) *Session {
	s := &Session{
		sender:    sender,
		builder:   chat.NewBuilder(""),
		greetings: DefaultGreetings,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, g := range s.greetings {
		s.transcript = append(s.transcript, chat.NewMessage(chat.RoleSystem, chat.Text(g)))
	}
	return s
}

// Turn is a submitted question waiting for its round trip.
type Turn struct {
	session *Session
	text    string
	history []chat.ChatMessage
	awaited bool

	// User is the turn appended to the transcript on submit.
	User chat.ChatMessage
}

// Submit records a user question and moves the session to Sending. The
// returned Turn must be awaited to complete the exchange.
func (s *Session) Submit(text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.state == Sending {
		return nil, ErrBusy
	}

	user := chat.NewMessage(chat.RoleUser, chat.Text(text))
	turn := &Turn{
		session: s,
		text:    text,
		history: slices.Clone(s.transcript),
		User:    user,
	}
	s.transcript = append(s.transcript, user)
	s.state = Sending

	slog.Debug("chat_turn_submitted", "message_id", user.ID, "history", len(turn.history))
	return turn, nil
}

// Await sends the question and appends exactly one assistant turn: the
// answer, the fallback reply, or a failure reply. The pipeline error,
// if any, is returned alongside that turn. When the session is closed
// or ctx is cancelled mid-flight nothing is appended and the error
// wraps chat.ErrAborted.
func (t *Turn) Await(ctx context.Context) (chat.ChatMessage, error) {
	s := t.session

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if t.awaited {
		s.mu.Unlock()
		return chat.ChatMessage{}, ErrTurnAwaited
	}
	t.awaited = true
	if s.closed {
		s.mu.Unlock()
		return chat.ChatMessage{}, chat.ErrAborted
	}
	s.cancel = cancel
	s.mu.Unlock()

	req := s.builder.Build(t.text, t.history)
	resp, err := s.sender.Send(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil

	if s.closed {
		slog.Debug("chat_result_dropped", "message_id", t.User.ID)
		return chat.ChatMessage{}, chat.ErrAborted
	}
	s.state = Idle

	if errors.Is(err, chat.ErrAborted) {
		return chat.ChatMessage{}, err
	}

	reply := chat.NewMessage(chat.RoleAssistant, chat.Text(replyText(resp, err)))
	s.transcript = append(s.transcript, reply)
	return reply, err
}

// Send submits text and waits for the reply.
func (s *Session) Send(ctx context.Context, text string) (chat.ChatMessage, error) {
	turn, err := s.Submit(text)
	if err != nil {
		return chat.ChatMessage{}, err
	}
	return turn.Await(ctx)
}

// Close cancels any in-flight request. Results that arrive afterwards
// are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state = Idle
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Transcript returns a copy of every turn so far, greetings included.
func (s *Session) Transcript() []chat.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// State reports whether a request is in flight.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func replyText(resp *chat.ChatCompletionResponse, err error) string {
	if err == nil {
		if answer, ok := chat.ExtractAnswer(resp); ok {
			slog.Info("chat_answer_received", "chars", len(answer))
			return answer
		}
		slog.Info("chat_answer_missing")
		return FallbackReply
	}

	var (
		timeoutErr *chat.TimeoutError
		httpErr    *chat.HTTPError
		netErr     *chat.NetworkError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return TimeoutReply
	case errors.As(err, &httpErr):
		slog.Error("chat_request_failed", "error", err)
		return HTTPErrorReply
	case errors.As(err, &netErr):
		slog.Error("chat_request_failed", "error", err)
		return NetworkErrorReply
	default:
		slog.Error("chat_request_failed", "error", err)
		return HTTPErrorReply
	}
}
