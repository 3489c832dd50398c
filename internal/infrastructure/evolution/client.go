package evolution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/infrastructure/config"
)

// InstanceStatus reports the gateway's WhatsApp connection state.
type InstanceStatus struct {
	Connected bool   `json:"connected"`
	Name      string `json:"name"`
}

// Client is a thin wrapper over the Evolution API. Send and download
// calls are retried exactly once on failure; the second failure
// propagates.
type Client struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
	logger   *zap.Logger
}

func NewClient(cfg config.EvolutionConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		instance: cfg.Instance,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With(zap.String("component", "evolution-client")),
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText delivers a WhatsApp text message through the gateway.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(sendTextRequest{Number: phone, Text: text})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, url.PathEscape(c.instance))
	_, err = c.withRetry(ctx, "sendText", func() ([]byte, error) {
		return c.do(ctx, "POST", endpoint, body)
	})
	return err
}

type mediaResponse struct {
	Base64 string `json:"base64"`
}

// DownloadMedia fetches a media attachment by message id and decodes the
// gateway's base64 payload to raw bytes.
func (c *Client) DownloadMedia(ctx context.Context, messageID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/chat/getBase64FromMediaMessage/%s?id=%s",
		c.baseURL, url.PathEscape(c.instance), url.QueryEscape(messageID))

	respBody, err := c.withRetry(ctx, "downloadMedia", func() ([]byte, error) {
		return c.do(ctx, "GET", endpoint, nil)
	})
	if err != nil {
		return nil, err
	}

	var media mediaResponse
	if err := json.Unmarshal(respBody, &media); err != nil {
		return nil, fmt.Errorf("unmarshal media response: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(media.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode media payload: %w", err)
	}
	return data, nil
}

type connectionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// InstanceStatus queries the gateway connection state. Any failure is
// reported as disconnected; this feeds the health endpoint only and
// never gates message processing.
func (c *Client) InstanceStatus(ctx context.Context) InstanceStatus {
	endpoint := fmt.Sprintf("%s/instance/connectionState/%s", c.baseURL, url.PathEscape(c.instance))

	respBody, err := c.do(ctx, "GET", endpoint, nil)
	if err != nil {
		return InstanceStatus{Connected: false, Name: c.instance}
	}

	var state connectionStateResponse
	if err := json.Unmarshal(respBody, &state); err != nil {
		return InstanceStatus{Connected: false, Name: c.instance}
	}

	return InstanceStatus{
		Connected: state.Instance.State == "open",
		Name:      c.instance,
	}
}

// withRetry runs fn, retrying exactly once on failure.
func (c *Client) withRetry(ctx context.Context, label string, fn func() ([]byte, error)) ([]byte, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}

	c.logger.Warn("Gateway call failed, retrying once",
		zap.String("call", label),
		zap.Error(err),
	)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return fn()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Evolution API error %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
