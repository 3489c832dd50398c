package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
	apperrors "github.com/zeroxtech/zeno/pkg/errors"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

func init() {
	llm.RegisterFactory(providerName, func(apiKey string, logger *zap.Logger) llm.Provider {
		return New(apiKey, logger)
	})
}

// Provider implements the Gemini generateContent API natively.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Gemini provider bound to one API key.
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
	resp, err := p.post(ctx, req.Model, p.buildRequest(req))
	if err != nil {
		return "", apperrors.NewProviderError(providerName, err)
	}
	if text := firstText(resp); text != "" {
		return text, nil
	}
	return llm.FallbackReply, nil
}

func (p *Provider) Describe(ctx context.Context, model string, image []byte, mimeType string) (string, error) {
	apiReq := &Request{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{InlineData: &InlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: llm.DescribePrompt},
			},
		}},
		GenerationConfig: &GenerationConfig{MaxOutputTokens: llm.MaxDescriptionTokens},
	}

	resp, err := p.post(ctx, model, apiReq)
	if err != nil {
		return "", apperrors.NewProviderError(providerName, err)
	}
	if text := firstText(resp); text != "" {
		return text, nil
	}
	return llm.FallbackDescription, nil
}

// buildRequest maps generic chat turns into the Gemini wire shape:
// assistant turns become role "model", the system prompt becomes
// systemInstruction.
func (p *Provider) buildRequest(req *llm.Request) *Request {
	contents := make([]Content, 0, len(req.Messages))
	for _, turn := range req.Messages {
		role := "user"
		if turn.Role == entity.RoleAssistant {
			role = "model"
		}
		contents = append(contents, Content{
			Role:  role,
			Parts: []Part{{Text: turn.Content}},
		})
	}

	apiReq := &Request{
		Contents:         contents,
		GenerationConfig: &GenerationConfig{MaxOutputTokens: llm.MaxReplyTokens},
	}
	if req.SystemPrompt != "" {
		apiReq.SystemInstruction = &Content{Parts: []Part{{Text: req.SystemPrompt}}}
	}
	return apiReq
}

func (p *Provider) post(ctx context.Context, model string, apiReq *Request) (*Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

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
		return nil, fmt.Errorf("Gemini API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &apiResp, nil
}

func firstText(resp *Response) string {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
