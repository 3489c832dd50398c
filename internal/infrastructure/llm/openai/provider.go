package openai

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
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com"
)

func init() {
	llm.RegisterFactory(providerName, func(apiKey string, logger *zap.Logger) llm.Provider {
		return New(apiKey, logger)
	})
}

// Provider implements the OpenAI chat completions API natively.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// New creates an OpenAI provider bound to one API key.
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
	resp, err := p.post(ctx, p.buildRequest(req))
	if err != nil {
		return "", apperrors.NewProviderError(providerName, err)
	}
	return replyText(resp), nil
}

func (p *Provider) Describe(ctx context.Context, model string, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	apiReq := &Request{
		Model:     model,
		MaxTokens: llm.MaxDescriptionTokens,
		Messages: []Message{{
			Role: "user",
			Content: []ContentPart{
				{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
				{Type: "text", Text: llm.DescribePrompt},
			},
		}},
	}

	resp, err := p.post(ctx, apiReq)
	if err != nil {
		return "", apperrors.NewProviderError(providerName, err)
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		return resp.Choices[0].Message.Content, nil
	}
	return llm.FallbackDescription, nil
}

// buildRequest maps generic chat turns into the OpenAI wire shape.
// The system prompt is injected as the first message, per convention.
func (p *Provider) buildRequest(req *llm.Request) *Request {
	messages := make([]Message, 0, len(req.Messages)+1)
	messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	for _, turn := range req.Messages {
		messages = append(messages, Message{Role: string(turn.Role), Content: turn.Content})
	}

	return &Request{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: llm.MaxReplyTokens,
	}
}

func (p *Provider) post(ctx context.Context, apiReq *Request) (*Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return nil, fmt.Errorf("OpenAI API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &apiResp, nil
}

func replyText(resp *Response) string {
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		return resp.Choices[0].Message.Content
	}
	return llm.FallbackReply
}
