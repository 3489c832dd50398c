package pipeline

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
)

// EventMessagesUpsert is the only gateway event the pipeline processes.
const EventMessagesUpsert = "messages.upsert"

const whatsappSuffix = "@s.whatsapp.net"

// Fixed Italian replies for the pipeline's fallback paths.
const (
	voiceApology     = "Non sono riuscito a trascrivere il messaggio vocale. Puoi riprovare o scrivermi in testo?"
	imageFallback    = "[L'utente ha inviato un'immagine che non sono riuscito ad analizzare]"
	notConfiguredMsg = "Il servizio non è al momento configurato. Riprova più tardi."
	llmApology       = "Mi dispiace, si è verificato un errore. Riprova più tardi."
	handoffReply     = "Ti metto in contatto con il team, verrai ricontattato al più presto."
)

// phonePattern accepts bare subscriber numbers only; group JIDs and
// malformed ids fail the match and are dropped.
var phonePattern = regexp.MustCompile(`^\d{7,15}$`)

// Gateway is the outbound WhatsApp surface the pipeline needs.
type Gateway interface {
	SendText(ctx context.Context, phone, text string) error
	DownloadMedia(ctx context.Context, messageID string) ([]byte, error)
}

// Transcriber converts a voice note to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Describer captions an image.
type Describer interface {
	Describe(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Dispatcher routes a chat request to an LLM provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *llm.DispatchRequest) (string, error)
}

// HandoffChecker decides whether a human takes over this turn.
type HandoffChecker interface {
	Check(ctx context.Context, phone, userText string) bool
}

// Pipeline orchestrates one inbound webhook delivery: validate, extract,
// transform media, check handoff, dispatch to the LLM, persist both
// turns, send the reply. It runs after the webhook has been acknowledged,
// so every failure here is logged and swallowed.
type Pipeline struct {
	messages    repository.MessageRepository
	settings    *settings.Service
	gateway     Gateway
	transcriber Transcriber
	describer   Describer
	dispatcher  Dispatcher
	handoff     HandoffChecker
	maxInput    int
	logger      *zap.Logger
}

func New(
	messages repository.MessageRepository,
	s *settings.Service,
	gateway Gateway,
	transcriber Transcriber,
	describer Describer,
	dispatcher Dispatcher,
	handoff HandoffChecker,
	maxInput int,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		messages:    messages,
		settings:    s,
		gateway:     gateway,
		transcriber: transcriber,
		describer:   describer,
		dispatcher:  dispatcher,
		handoff:     handoff,
		maxInput:    maxInput,
		logger:      logger.With(zap.String("component", "webhook-pipeline")),
	}
}

// Process handles one acknowledged webhook payload. The payload arrives
// as decoded JSON; every structural defect past the top level is a
// silent drop, matching webhook semantics.
func (p *Pipeline) Process(ctx context.Context, event string, data any) {
	if event != EventMessagesUpsert {
		return
	}

	dataMap, ok := data.(map[string]any)
	if !ok {
		return
	}
	key, ok := dataMap["key"].(map[string]any)
	if !ok {
		return
	}

	// Echo suppression: skip messages we sent ourselves.
	if fromMe, _ := key["fromMe"].(bool); fromMe {
		return
	}

	remoteJid, ok := key["remoteJid"].(string)
	if !ok {
		return
	}
	phone := strings.TrimSuffix(remoteJid, whatsappSuffix)
	if !phonePattern.MatchString(phone) {
		return
	}

	message, ok := dataMap["message"].(map[string]any)
	if !ok {
		return
	}
	messageID, _ := key["id"].(string)

	userText, mediaType, done := p.extractContent(ctx, phone, messageID, message)
	if done {
		return
	}

	userText = strings.TrimSpace(userText)
	if userText == "" {
		return
	}
	userText = p.truncate(userText)

	if p.handoff.Check(ctx, phone, userText) {
		p.respond(ctx, phone, userText, mediaType, handoffReply)
		return
	}

	p.dispatchAndReply(ctx, phone, userText, mediaType)
}

// extractContent pulls the user text out of the message in priority
// order: plain text, extended text, voice, image. done means the
// pipeline must stop (unsupported type, or voice transcription failed
// and the apology has been sent).
func (p *Pipeline) extractContent(ctx context.Context, phone, messageID string, message map[string]any) (userText, mediaType string, done bool) {
	if text, ok := message["conversation"].(string); ok && text != "" {
		return text, "", false
	}

	if ext, ok := message["extendedTextMessage"].(map[string]any); ok {
		if text, ok := ext["text"].(string); ok && text != "" {
			return text, "", false
		}
	}

	if _, ok := message["audioMessage"]; ok {
		text, err := p.transcribeVoice(ctx, messageID)
		if err != nil {
			p.logger.Error("Voice transcription failed",
				zap.String("phone", phone),
				zap.Error(err),
			)
			p.send(ctx, phone, voiceApology)
			return "", "", true
		}
		return text, string(entity.MediaVoice), false
	}

	if img, ok := message["imageMessage"].(map[string]any); ok {
		caption, _ := img["caption"].(string)
		mime, _ := img["mimetype"].(string)
		return p.describeImage(ctx, phone, messageID, caption, mime), string(entity.MediaImage), false
	}

	// Unsupported message type (stickers, documents, ...).
	return "", "", true
}

func (p *Pipeline) transcribeVoice(ctx context.Context, messageID string) (string, error) {
	audio, err := p.gateway.DownloadMedia(ctx, messageID)
	if err != nil {
		return "", err
	}
	return p.transcriber.Transcribe(ctx, audio)
}

// describeImage builds the user text for an image message. Description
// failures are recoverable: the caption alone, or a fixed placeholder,
// keeps the pipeline going.
func (p *Pipeline) describeImage(ctx context.Context, phone, messageID, caption, mime string) string {
	if mime == "" {
		mime = "image/jpeg"
	}

	image, err := p.gateway.DownloadMedia(ctx, messageID)
	if err == nil {
		var description string
		description, err = p.describer.Describe(ctx, image, mime)
		if err == nil {
			if caption != "" {
				return "[L'utente ha inviato un'immagine: " + description + "] Messaggio: " + caption
			}
			return "[L'utente ha inviato un'immagine: " + description + "]"
		}
	}

	p.logger.Error("Image description failed",
		zap.String("phone", phone),
		zap.Error(err),
	)
	if caption != "" {
		return caption
	}
	return imageFallback
}

// dispatchAndReply runs the LLM leg: history, dispatch, persist both
// turns in order, send the reply.
func (p *Pipeline) dispatchAndReply(ctx context.Context, phone, userText, mediaType string) {
	maxHistory := p.settings.GetInt(ctx, settings.KeyMaxHistory, 50)
	if maxHistory < 1 {
		// A stored zero or negative value must not unbound the context window.
		maxHistory = 50
	}
	history, err := p.messages.History(ctx, phone, maxHistory)
	if err != nil {
		p.logger.Error("Failed to load history", zap.String("phone", phone), zap.Error(err))
		return
	}

	turns := make([]entity.ChatTurn, 0, len(history)+1)
	for i := range history {
		turns = append(turns, history[i].Turn())
	}
	turns = append(turns, entity.ChatTurn{Role: entity.RoleUser, Content: userText})

	provider := p.settings.GetOr(ctx, settings.KeyLLMProvider, "claude")
	model := p.settings.GetOr(ctx, settings.KeyLLMModel, "claude-sonnet-4-5-20250514")
	systemPrompt := p.settings.Get(ctx, settings.KeySystemPrompt)

	apiKey := p.settings.APIKey(ctx, provider)
	if apiKey == "" {
		p.logger.Error("No API key configured for provider", zap.String("provider", provider))
		p.send(ctx, phone, notConfiguredMsg)
		return
	}

	reply, err := p.dispatcher.Dispatch(ctx, &llm.DispatchRequest{
		Provider:     provider,
		Model:        model,
		APIKey:       apiKey,
		SystemPrompt: systemPrompt,
		Messages:     turns,
	})
	if err != nil {
		p.logger.Error("LLM dispatch failed",
			zap.String("phone", phone),
			zap.String("provider", provider),
			zap.Error(err),
		)
		p.send(ctx, phone, llmApology)
		return
	}

	p.respond(ctx, phone, userText, mediaType, reply)
}

// respond persists the user turn then the assistant turn, then sends the
// reply through the gateway.
func (p *Pipeline) respond(ctx context.Context, phone, userText, mediaType, reply string) {
	userMsg := &entity.Message{
		Phone:     phone,
		Role:      entity.RoleUser,
		Content:   userText,
		MediaType: mediaType,
	}
	if err := p.messages.Save(ctx, userMsg); err != nil {
		p.logger.Error("Failed to persist user turn", zap.String("phone", phone), zap.Error(err))
		return
	}

	assistantMsg := &entity.Message{
		Phone:   phone,
		Role:    entity.RoleAssistant,
		Content: reply,
	}
	if err := p.messages.Save(ctx, assistantMsg); err != nil {
		p.logger.Error("Failed to persist assistant turn", zap.String("phone", phone), zap.Error(err))
		return
	}

	p.send(ctx, phone, reply)
}

func (p *Pipeline) send(ctx context.Context, phone, text string) {
	if err := p.gateway.SendText(ctx, phone, text); err != nil {
		p.logger.Error("Failed to send reply", zap.String("phone", phone), zap.Error(err))
	}
}

func (p *Pipeline) truncate(text string) string {
	if p.maxInput <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= p.maxInput {
		return text
	}
	return string(runes[:p.maxInput])
}
