package transport

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"faqchat/pkg/chat"
	"faqchat/pkg/config"
)

// Sender dispatches one chat request and returns the parsed response.
// Failures are *chat.TimeoutError, *chat.HTTPError, *chat.NetworkError
// or wrap chat.ErrAborted.
type Sender interface {
	Send(ctx context.Context, req chat.ChatRequest) (*chat.ChatCompletionResponse, error)
}

// BackendType names a registered backend.
type BackendType string

const (
	BackendFAQ    BackendType = config.BackendFAQ
	BackendOpenAI BackendType = config.BackendOpenAI
)

// BackendConfig holds configuration for creating a backend.
type BackendConfig struct {
	Type       BackendType
	Config     config.Config
	HTTPClient *http.Client
}

// Factory creates a Sender from config.
type Factory func(cfg BackendConfig) (Sender, error)

// BackendInfo describes a registered backend.
type BackendInfo struct {
	Type        BackendType
	Name        string
	Description string
	RequiresKey bool
}

// Registry manages backend factories and instantiation.
type Registry struct {
	mu        sync.RWMutex
	factories map[BackendType]Factory
	info      map[BackendType]BackendInfo
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[BackendType]Factory),
		info:      make(map[BackendType]BackendInfo),
	}
}

// Register adds a backend factory to the registry.
func (r *Registry) Register(info BackendInfo, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[info.Type] = factory
	r.info[info.Type] = info
}

// Get creates a sender by type.
func (r *Registry) Get(cfg BackendConfig) (Sender, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", cfg.Type)
	}

	return factory(cfg)
}

// List returns all registered backends ordered by type.
func (r *Registry) List() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backends := make([]BackendInfo, 0, len(r.info))
	for _, info := range r.info {
		backends = append(backends, info)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i].Type < backends[j].Type })
	return backends
}

// IsRegistered checks if a backend type is registered.
func (r *Registry) IsRegistered(backend BackendType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[backend]
	return ok
}

// DefaultRegistry is the global backend registry.
var DefaultRegistry = NewRegistry()

// Register registers a backend with the default registry.
func Register(info BackendInfo, factory Factory) {
	DefaultRegistry.Register(info, factory)
}

// New creates the sender selected by cfg.Backend. An empty backend
// selects the FAQ service.
func New(cfg config.Config) (Sender, error) {
	backend := BackendType(cfg.Backend)
	if backend == "" {
		backend = BackendFAQ
	}
	return DefaultRegistry.Get(BackendConfig{Type: backend, Config: cfg})
}

func optionsFromConfig(cfg BackendConfig) Options {
	return Options{
		BaseURL:    cfg.Config.BaseURL(),
		APIKey:     cfg.Config.APIKey,
		Timeout:    cfg.Config.Timeout(),
		HTTPClient: cfg.HTTPClient,
	}
}
