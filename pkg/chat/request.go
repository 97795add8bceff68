package chat

import "encoding/json"

// DefaultModel is the model identifier of the deployed FAQ backend.
const DefaultModel = "faq-chat"

// Params are optional generation parameters. They are never set by the
// builder itself but are carried through to the wire unchanged.
type Params struct {
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	Stream         *bool           `json:"stream,omitempty"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
	Seed           *int64          `json:"seed,omitempty"`
}

func (p Params) clone() Params {
	out := p
	if p.ResponseFormat != nil {
		out.ResponseFormat = append(json.RawMessage(nil), p.ResponseFormat...)
	}
	return out
}

// ChatRequest is the chat-completion request envelope.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []WireMessage `json:"messages"`
	Params
}

// Builder assembles chat requests.
type Builder struct {
	Model  string
	Params Params
	NewID  func() string
}

// NewBuilder returns a builder for the given model. An empty model
// selects DefaultModel.
func NewBuilder(model string) Builder {
	if model == "" {
		model = DefaultModel
	}
	return Builder{Model: model, NewID: NewID}
}

// WithParams returns a copy of b that carries p onto every request.
func (b Builder) WithParams(p Params) Builder {
	b.Params = p.clone()
	return b
}

// Build returns a request replaying history followed by a new user turn
// carrying text. Neither argument is modified.
func (b Builder) Build(text string, history []ChatMessage) ChatRequest {
	newID := b.NewID
	if newID == nil {
		newID = NewID
	}
	model := b.Model
	if model == "" {
		model = DefaultModel
	}

	messages := formatHistory(history, newID)
	messages = append(messages, WireMessage{
		ID:      newID(),
		Role:    RoleUser,
		Content: text,
	})

	return ChatRequest{
		Model:    model,
		Messages: messages,
		Params:   b.Params.clone(),
	}
}

// BuildRequest builds a request for the deployed FAQ model.
func BuildRequest(text string, history []ChatMessage) ChatRequest {
	return NewBuilder(DefaultModel).Build(text, history)
}
