package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/domain/entity"
)

// maxCachedClients bounds the per-credential client cache. Key churn only
// happens when an admin rotates credentials, so overflow resets the whole
// cache rather than tracking recency.
const maxCachedClients = 16

// DispatchRequest selects a provider and carries the chat payload.
type DispatchRequest struct {
	Provider     string
	Model        string
	APIKey       string
	SystemPrompt string
	Messages     []entity.ChatTurn
}

// Dispatcher routes chat requests to the configured provider adapter,
// reusing one client instance per (provider, credential) pair.
type Dispatcher struct {
	mu      sync.Mutex
	clients map[string]Provider
	logger  *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		clients: make(map[string]Provider),
		logger:  logger.With(zap.String("component", "llm-dispatcher")),
	}
}

// Dispatch invokes the provider named in the request and returns the
// assistant reply. Unknown providers are a hard error, never a fallback.
func (d *Dispatcher) Dispatch(ctx context.Context, req *DispatchRequest) (string, error) {
	provider, err := d.client(req.Provider, req.APIKey)
	if err != nil {
		return "", err
	}

	start := time.Now()
	reply, err := provider.Generate(ctx, &Request{
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Messages:     req.Messages,
	})
	if err != nil {
		d.logger.Warn("LLM call failed",
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	d.logger.Debug("LLM call completed",
		zap.String("provider", req.Provider),
		zap.String("model", req.Model),
		zap.Duration("latency", time.Since(start)),
	)
	return reply, nil
}

// Describe routes an image to the named provider's vision call.
func (d *Dispatcher) Describe(ctx context.Context, providerName, apiKey, model string, image []byte, mimeType string) (string, error) {
	provider, err := d.client(providerName, apiKey)
	if err != nil {
		return "", err
	}
	return provider.Describe(ctx, model, image, mimeType)
}

func (d *Dispatcher) client(name, apiKey string) (Provider, error) {
	key := name + "\x00" + apiKey

	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.clients[key]; ok {
		return p, nil
	}

	p, err := newProvider(name, apiKey, d.logger)
	if err != nil {
		return nil, err
	}

	if len(d.clients) >= maxCachedClients {
		d.clients = make(map[string]Provider)
	}
	d.clients[key] = p
	return p, nil
}
