package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/pipeline"
	"github.com/zeroxtech/zeno/pkg/safego"
)

// WebhookHandler receives Evolution API deliveries. It acknowledges
// structurally valid payloads immediately (so the gateway never
// retransmits) and runs the pipeline detached from the request.
type WebhookHandler struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

func NewWebhookHandler(p *pipeline.Pipeline, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		pipeline: p,
		logger:   logger.With(zap.String("component", "webhook-handler")),
	}
}

// Handle validates only the top-level shape before acknowledging: the
// body must be a JSON object with a string event field. Everything past
// that happens after the 200 and never reaches the sender.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	event, ok := body["event"].(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid event field"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})

	data := body["data"]
	safego.Go(h.logger, "webhook-pipeline", func() {
		h.pipeline.Process(context.Background(), event, data)
	})
}
