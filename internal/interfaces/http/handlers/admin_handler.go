package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/infrastructure/evolution"
)

// maskedValue replaces stored secrets in settings responses. Posting it
// back is a no-op, so the admin UI can round-trip the settings form.
const maskedValue = "••••••••"

// editableKeys is the allow-list for POST /settings.
var editableKeys = map[string]bool{
	settings.KeyLLMProvider:     true,
	settings.KeyLLMModel:        true,
	settings.KeySystemPrompt:    true,
	settings.KeyMaxHistory:      true,
	settings.KeyHandoffKeywords: true,
	settings.KeyHandoffEmail:    true,
	settings.KeyClaudeAPIKey:    true,
	settings.KeyOpenAIAPIKey:    true,
	settings.KeyGeminiAPIKey:    true,
	settings.KeySMTPHost:        true,
	settings.KeySMTPPort:        true,
	settings.KeySMTPUser:        true,
	settings.KeySMTPPass:        true,
	settings.KeySMTPFrom:        true,
}

// GatewayStatus reports the WhatsApp gateway connection for /health.
type GatewayStatus interface {
	InstanceStatus(ctx context.Context) evolution.InstanceStatus
}

// AdminHandler serves the admin panel API: stats, settings,
// conversation browsing, search, and health.
type AdminHandler struct {
	messages repository.MessageRepository
	settings *settings.Service
	gateway  GatewayStatus
	dbPing   func() error
	logger   *zap.Logger
}

func NewAdminHandler(
	messages repository.MessageRepository,
	s *settings.Service,
	gateway GatewayStatus,
	dbPing func() error,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		messages: messages,
		settings: s,
		gateway:  gateway,
		dbPing:   dbPing,
		logger:   logger.With(zap.String("component", "admin-api")),
	}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.messages.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSettings returns all stored settings with secrets masked.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	out := make(map[string]string, len(all))
	for key, value := range all {
		if isSecretKey(key) && value != "" {
			out[key] = maskedValue
		} else {
			out[key] = value
		}
	}
	c.JSON(http.StatusOK, out)
}

// UpdateSettings writes allow-listed keys. Unknown keys and masked
// placeholder values are skipped silently.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated := 0
	for key, value := range body {
		if !editableKeys[key] || value == maskedValue {
			continue
		}
		if err := h.settings.Set(c.Request.Context(), key, value); err != nil {
			h.logger.Error("Failed to store setting", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store settings"})
			return
		}
		updated++
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "updated": updated})
}

func (h *AdminHandler) ListConversations(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.messages.ListConversations(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.Error("Failed to list conversations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) GetConversation(c *gin.Context) {
	phone := c.Param("phone")
	messages, err := h.messages.Conversation(c.Request.Context(), phone)
	if err != nil {
		h.logger.Error("Failed to load conversation", zap.String("phone", phone), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone": phone, "messages": messages})
}

func (h *AdminHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	page, limit := pageParams(c)
	result, err := h.messages.Search(c.Request.Context(), query, page, limit)
	if err != nil {
		h.logger.Error("Search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Health reports store and gateway reachability. Gateway failures show
// as disconnected, never as an error status.
func (h *AdminHandler) Health(c *gin.Context) {
	database := "ok"
	if err := h.dbPing(); err != nil {
		database = "unreachable"
	}

	status := h.gateway.InstanceStatus(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": database,
		"gateway":  status,
	})
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "_api_key") || key == settings.KeySMTPPass
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
