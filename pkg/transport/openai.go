package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"faqchat/pkg/chat"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func init() {
	Register(BackendInfo{
		Type:        BackendOpenAI,
		Name:        "OpenAI-compatible",
		Description: "POST {api_url}/chat/completions via the OpenAI client",
	}, func(cfg BackendConfig) (Sender, error) {
		return NewOpenAITransport(optionsFromConfig(cfg))
	})
}

// OpenAITransport sends chat requests to a backend that exposes the
// stock /chat/completions route.
type OpenAITransport struct {
	client  openai.Client
	timeout time.Duration
}

// NewOpenAITransport creates a transport backed by the OpenAI client.
func NewOpenAITransport(opts Options) (*OpenAITransport, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(opts.HTTPClient),
		option.WithMaxRetries(0),
		option.WithHeader("User-Agent", opts.UserAgent),
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &OpenAITransport{
		client:  openai.NewClient(clientOpts...),
		timeout: opts.Timeout,
	}, nil
}

// Send performs a single chat completion call. Streaming is not
// supported and the stream flag is ignored.
func (t *OpenAITransport) Send(ctx context.Context, req chat.ChatRequest) (*chat.ChatCompletionResponse, error) {
	params, err := buildCompletionParams(req)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var httpErr *chat.HTTPError
	captureStatus := option.WithMiddleware(func(r *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		res, err := next(r)
		if err != nil || res.StatusCode < 400 {
			return res, err
		}
		data, readErr := io.ReadAll(res.Body)
		res.Body.Close()
		res.Body = io.NopCloser(bytes.NewReader(data))
		if readErr == nil {
			httpErr = &chat.HTTPError{StatusCode: res.StatusCode, Body: string(data)}
		}
		return res, nil
	})

	reqOpts := []option.RequestOption{captureStatus}
	if len(req.ResponseFormat) > 0 {
		var format any
		if err := json.Unmarshal(req.ResponseFormat, &format); err != nil {
			return nil, fmt.Errorf("invalid response_format: %w", err)
		}
		reqOpts = append(reqOpts, option.WithJSONSet("response_format", format))
	}

	slog.Debug("openai_chat_request",
		"model", req.Model,
		"messages", len(req.Messages),
	)

	start := time.Now()
	completion, err := t.client.Chat.Completions.New(reqCtx, params, reqOpts...)
	if err != nil {
		if httpErr != nil {
			slog.Warn("chat_request_http_error",
				"status_code", httpErr.StatusCode,
				"response_preview", preview([]byte(httpErr.Body)),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil, httpErr
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &chat.HTTPError{StatusCode: apiErr.StatusCode, Body: apiErr.RawJSON()}
		}
		return nil, classify(ctx, reqCtx, t.timeout, err)
	}

	var out chat.ChatCompletionResponse
	if err := json.Unmarshal([]byte(completion.RawJSON()), &out); err != nil {
		return nil, &chat.NetworkError{Cause: fmt.Errorf("malformed response: %w", err)}
	}

	slog.Debug("chat_request_done",
		"response_id", out.ID,
		"choices", len(out.Choices),
		"total_tokens", out.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

func buildCompletionParams(req chat.ChatRequest) (openai.ChatCompletionNewParams, error) {
	model := req.Model
	if model == "" {
		model = chat.DefaultModel
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		param, err := toMessageParam(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.Seed != nil {
		params.Seed = openai.Int(*req.Seed)
	}
	return params, nil
}

func toMessageParam(msg chat.WireMessage) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case chat.RoleUser:
		return openai.UserMessage(msg.Content), nil
	case chat.RoleAssistant:
		return openai.AssistantMessage(msg.Content), nil
	case chat.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case chat.RoleDeveloper:
		return openai.DeveloperMessage(msg.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role: %s", msg.Role)
	}
}
