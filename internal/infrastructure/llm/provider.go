package llm

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/domain/entity"
)

// Fixed strings sent to end users when a vendor returns nothing useful.
// Replies are always in Italian, matching the bot's audience.
const (
	FallbackReply       = "Non sono riuscito a generare una risposta."
	FallbackDescription = "Immagine non descrivibile"
	DescribePrompt      = "Descrivi brevemente questa immagine in italiano, in una o due frasi."
)

// Token caps on vendor calls.
const (
	MaxReplyTokens       = 1024
	MaxDescriptionTokens = 300
)

// Request is the provider-agnostic chat request. Messages are ordered
// oldest first; the last turn is the new user message.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []entity.ChatTurn
}

// Provider is one vendor chat adapter. Implementations are safe for
// concurrent use and reusable across calls with the same credential.
type Provider interface {
	// Name returns the provider identifier ("claude", "openai", "gemini").
	Name() string

	// Generate returns the assistant's text reply. An empty vendor reply
	// is mapped to FallbackReply, never "".
	Generate(ctx context.Context, req *Request) (string, error)

	// Describe returns a one-to-two sentence description of an image.
	Describe(ctx context.Context, model string, image []byte, mimeType string) (string, error)
}

// --- Provider Factory Registry ---
// Providers register themselves via init() in their own package.
// Adding a provider = implement Provider + RegisterFactory("name", New).

// Factory creates a Provider bound to one API key.
type Factory func(apiKey string, logger *zap.Logger) Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterFactory registers a provider factory for the given name.
// Called from init() in each provider sub-package.
func RegisterFactory(name string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[name] = factory
}

// newProvider instantiates a provider by name. Unknown names are a hard
// error: dispatch never falls back to a default provider.
func newProvider(name, apiKey string, logger *zap.Logger) (Provider, error) {
	factoryMu.RLock()
	factory, ok := factories[name]
	factoryMu.RUnlock()

	if !ok {
		factoryMu.RLock()
		available := make([]string, 0, len(factories))
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown LLM provider %q (available: %v)", name, available)
	}

	return factory(apiKey, logger), nil
}

// NewHTTPClient builds the shared transport used by all vendor clients.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &http.Client{Transport: transport}
}
