package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
	apperrors "github.com/zeroxtech/zeno/pkg/errors"
)

const (
	providerName     = "claude"
	anthropicVersion = "2023-06-01"
	defaultBaseURL   = "https://api.anthropic.com"
)

func init() {
	llm.RegisterFactory(providerName, func(apiKey string, logger *zap.Logger) llm.Provider {
		return New(apiKey, logger)
	})
}

// Provider implements the Anthropic Messages API natively.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// New creates an Anthropic provider bound to one API key.
func New(apiKey string, logger *zap.Logger) *Provider {
	return &Provider{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  llm.NewHTTPClient(),
		logger:  logger.With(zap.String("provider", providerName)),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return providerName }

func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	apiReq := p.buildRequest(req)

	resp, err := p.post(ctx, apiReq)
	if err != nil {
		return "", apperrors.NewProviderError(providerName, err)
	}

	return replyText(resp), nil
}

func (p *Provider) Describe(ctx context.Context, model string, image []byte, mimeType string) (string, error) {
	apiReq := &Request{
		Model:     model,
		MaxTokens: llm.MaxDescriptionTokens,
		Messages: []Message{{
			Role: "user",
			Content: []ContentBlock{
				{
					Type: "image",
					Source: &ImageSource{
						Type:      "base64",
						MediaType: coerceMediaType(mimeType),
						Data:      base64.StdEncoding.EncodeToString(image),
					},
				},
				{Type: "text", Text: llm.DescribePrompt},
			},
		}},
	}

	resp, err := p.post(ctx, apiReq)
	if err != nil {
		return "", apperrors.NewProviderError(providerName, err)
	}

	if text := firstText(resp); text != "" {
		return text, nil
	}
	return llm.FallbackDescription, nil
}

// buildRequest maps generic chat turns into the Anthropic wire shape.
// The system prompt goes in the dedicated top-level field.
func (p *Provider) buildRequest(req *llm.Request) *Request {
	messages := make([]Message, 0, len(req.Messages))
	for _, turn := range req.Messages {
		messages = append(messages, Message{
			Role:    string(turn.Role),
			Content: []ContentBlock{{Type: "text", Text: turn.Content}},
		})
	}

	return &Request{
		Model:     req.Model,
		MaxTokens: llm.MaxReplyTokens,
		System:    req.SystemPrompt,
		Messages:  messages,
	}
}

func (p *Provider) post(ctx context.Context, apiReq *Request) (*Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Anthropic API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &apiResp, nil
}

func replyText(resp *Response) string {
	if text := firstText(resp); text != "" {
		return text
	}
	return llm.FallbackReply
}

func firstText(resp *Response) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}

// supportedMediaTypes are the image formats the Messages API accepts.
var supportedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func coerceMediaType(mimeType string) string {
	if supportedMediaTypes[mimeType] {
		return mimeType
	}
	return "image/jpeg"
}
