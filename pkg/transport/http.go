package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"faqchat/pkg/chat"
	"faqchat/pkg/logging"
	"faqchat/pkg/version"
)

const (
	// DefaultTimeout bounds a single round trip.
	DefaultTimeout = 30 * time.Second

	chatPath        = "/chat"
	errorPreviewLen = 200
)

func init() {
	Register(BackendInfo{
		Type:        BackendFAQ,
		Name:        "FAQ service",
		Description: "POST {api_url}/chat on the FAQ backend",
	}, func(cfg BackendConfig) (Sender, error) {
		return NewHTTPTransport(optionsFromConfig(cfg))
	})
}

// Options configure a transport.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
}

func (o Options) withDefaults() (Options, error) {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		return o, fmt.Errorf("base url is required")
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.UserAgent == "" {
		o.UserAgent = version.UserAgent()
	}
	return o, nil
}

// HTTPTransport posts chat requests to the FAQ service.
type HTTPTransport struct {
	baseURL   string
	apiKey    string
	timeout   time.Duration
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates a transport for the FAQ service at opts.BaseURL.
func NewHTTPTransport(opts Options) (*HTTPTransport, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &HTTPTransport{
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		timeout:   opts.Timeout,
		client:    opts.HTTPClient,
		userAgent: opts.UserAgent,
	}, nil
}

// Endpoint is the URL requests are posted to.
func (t *HTTPTransport) Endpoint() string {
	return t.baseURL + chatPath
}

// Send performs a single POST. There are no retries.
func (t *HTTPTransport) Send(ctx context.Context, req chat.ChatRequest) (*chat.ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	endpoint := t.Endpoint()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &chat.NetworkError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	slog.Debug("chat_request_start",
		"url", endpoint,
		"model", req.Model,
		"messages", len(req.Messages),
		"request_size", len(body),
	)
	traceBody(ctx, "chat_request_body", body)

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, reqCtx, t.timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, reqCtx, t.timeout, err)
	}
	traceBody(ctx, "chat_response_body", data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("chat_request_http_error",
			"status_code", resp.StatusCode,
			"response_preview", preview(data),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, &chat.HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out chat.ChatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("chat_response_malformed", "error", err, "response_preview", preview(data))
		return nil, &chat.NetworkError{Cause: fmt.Errorf("malformed response: %w", err)}
	}

	slog.Debug("chat_request_done",
		"response_id", out.ID,
		"choices", len(out.Choices),
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"total_tokens", out.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

// classify maps a failed round trip onto the pipeline error taxonomy.
// parent is the caller's context and reqCtx the one carrying the
// request deadline.
func classify(parent, reqCtx context.Context, timeout time.Duration, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		slog.Debug("chat_request_aborted")
		return fmt.Errorf("%w: %w", chat.ErrAborted, parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		slog.Warn("chat_request_timeout", "timeout", timeout)
		return &chat.TimeoutError{After: timeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		slog.Warn("chat_request_timeout", "timeout", timeout, "error", err)
		return &chat.TimeoutError{After: timeout}
	}
	slog.Warn("chat_request_network_error", "error", err)
	return &chat.NetworkError{Cause: err}
}

func traceBody(ctx context.Context, msg string, body []byte) {
	logger := slog.Default()
	if !logger.Enabled(ctx, logging.LevelTrace) {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		logger.Log(ctx, logging.LevelTrace, msg, "json", pretty.String())
		return
	}
	logger.Log(ctx, logging.LevelTrace, msg, "raw", string(body))
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > errorPreviewLen {
		return s[:errorPreviewLen] + "..."
	}
	return s
}
