package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/infrastructure/config"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence"
)

// --- fakes ---

type fakeGateway struct {
	sent        []string
	media       []byte
	downloadErr error
	sendErr     error
}

func (g *fakeGateway) SendText(_ context.Context, _, text string) error {
	g.sent = append(g.sent, text)
	return g.sendErr
}

func (g *fakeGateway) DownloadMedia(_ context.Context, _ string) ([]byte, error) {
	if g.downloadErr != nil {
		return nil, g.downloadErr
	}
	return g.media, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	return t.text, t.err
}

type fakeDescriber struct {
	text string
	err  error
}

func (d *fakeDescriber) Describe(_ context.Context, _ []byte, _ string) (string, error) {
	return d.text, d.err
}

type fakeDispatcher struct {
	reply    string
	err      error
	requests []*llm.DispatchRequest
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req *llm.DispatchRequest) (string, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return "", d.err
	}
	return d.reply, nil
}

type fakeHandoff struct {
	triggered bool
}

func (h *fakeHandoff) Check(_ context.Context, _, _ string) bool { return h.triggered }

// --- harness ---

type harness struct {
	pipeline   *Pipeline
	messages   *persistence.MemoryMessageRepository
	settings   *settings.Service
	gateway    *fakeGateway
	transcribe *fakeTranscriber
	describe   *fakeDescriber
	dispatch   *fakeDispatcher
	handoff    *fakeHandoff
}

func newHarness(t *testing.T, maxInput int) *harness {
	t.Helper()

	h := &harness{
		messages:   persistence.NewMemoryMessageRepository(),
		gateway:    &fakeGateway{media: []byte("media-bytes")},
		transcribe: &fakeTranscriber{text: "messaggio trascritto"},
		describe:   &fakeDescriber{text: "un gatto sul divano"},
		dispatch:   &fakeDispatcher{reply: "Ciao! Come posso aiutarti?"},
		handoff:    &fakeHandoff{},
	}

	h.settings = settings.NewService(
		persistence.NewMemorySettingsRepository(),
		config.ProvidersConfig{ClaudeAPIKey: "env-key"},
		config.SMTPConfig{},
	)

	h.pipeline = New(h.messages, h.settings, h.gateway, h.transcribe,
		h.describe, h.dispatch, h.handoff, maxInput, zap.NewNop())
	return h
}

func textEvent(phone, text string) map[string]any {
	return map[string]any{
		"key": map[string]any{
			"remoteJid": phone + "@s.whatsapp.net",
			"fromMe":    false,
			"id":        "MSG1",
		},
		"message": map[string]any{"conversation": text},
	}
}

func (h *harness) savedMessages(t *testing.T, phone string) []entity.Message {
	t.Helper()
	msgs, err := h.messages.Conversation(context.Background(), phone)
	if err != nil {
		t.Fatalf("failed to load conversation: %v", err)
	}
	return msgs
}

// --- tests ---

func TestProcessTextMessage(t *testing.T) {
	h := newHarness(t, 0)
	h.pipeline.Process(context.Background(), EventMessagesUpsert, textEvent("393331234567", "Ciao"))

	if len(h.dispatch.requests) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(h.dispatch.requests))
	}
	req := h.dispatch.requests[0]
	if req.Provider != "claude" {
		t.Fatalf("provider = %q, want claude", req.Provider)
	}
	if req.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env fallback", req.APIKey)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Ciao" {
		t.Fatalf("unexpected turns: %+v", req.Messages)
	}

	saved := h.savedMessages(t, "393331234567")
	if len(saved) != 2 {
		t.Fatalf("saved messages = %d, want 2", len(saved))
	}
	if saved[0].Role != entity.RoleUser || saved[0].Content != "Ciao" {
		t.Fatalf("first saved message = %+v", saved[0])
	}
	if saved[1].Role != entity.RoleAssistant || saved[1].Content != h.dispatch.reply {
		t.Fatalf("second saved message = %+v", saved[1])
	}

	if len(h.gateway.sent) != 1 || h.gateway.sent[0] != h.dispatch.reply {
		t.Fatalf("sent = %v", h.gateway.sent)
	}
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	h := newHarness(t, 0)
	h.pipeline.Process(context.Background(), "connection.update", textEvent("393331234567", "Ciao"))

	if len(h.dispatch.requests) != 0 || len(h.gateway.sent) != 0 {
		t.Fatal("expected event to be ignored")
	}
}

func TestProcessIgnoresOwnMessages(t *testing.T) {
	h := newHarness(t, 0)
	data := textEvent("393331234567", "Ciao")
	data["key"].(map[string]any)["fromMe"] = true

	h.pipeline.Process(context.Background(), EventMessagesUpsert, data)

	if len(h.dispatch.requests) != 0 || len(h.gateway.sent) != 0 {
		t.Fatal("expected own message to be ignored")
	}
	if len(h.savedMessages(t, "393331234567")) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestProcessDropsInvalidSenders(t *testing.T) {
	jids := []string{
		"1234567890-1603993285@g.us", // group chat
		"status@broadcast",
		"abc@s.whatsapp.net",
		"123@s.whatsapp.net", // too short
		"",
	}

	for _, jid := range jids {
		h := newHarness(t, 0)
		data := map[string]any{
			"key":     map[string]any{"remoteJid": jid, "fromMe": false},
			"message": map[string]any{"conversation": "Ciao"},
		}
		h.pipeline.Process(context.Background(), EventMessagesUpsert, data)

		if len(h.dispatch.requests) != 0 || len(h.gateway.sent) != 0 {
			t.Fatalf("expected jid %q to be dropped", jid)
		}
	}
}

func TestProcessDropsMalformedPayloads(t *testing.T) {
	payloads := []any{
		nil,
		"not a map",
		map[string]any{},
		map[string]any{"key": "not a map"},
		map[string]any{"key": map[string]any{"remoteJid": "393331234567@s.whatsapp.net"}},
	}

	for _, data := range payloads {
		h := newHarness(t, 0)
		h.pipeline.Process(context.Background(), EventMessagesUpsert, data)
		if len(h.gateway.sent) != 0 {
			t.Fatalf("expected payload %v to be dropped", data)
		}
	}
}

func TestProcessDropsUnsupportedTypes(t *testing.T) {
	h := newHarness(t, 0)
	data := map[string]any{
		"key":     map[string]any{"remoteJid": "393331234567@s.whatsapp.net", "fromMe": false},
		"message": map[string]any{"stickerMessage": map[string]any{}},
	}
	h.pipeline.Process(context.Background(), EventMessagesUpsert, data)

	if len(h.dispatch.requests) != 0 || len(h.gateway.sent) != 0 {
		t.Fatal("expected sticker to be dropped")
	}
}

func TestProcessDropsBlankText(t *testing.T) {
	h := newHarness(t, 0)
	h.pipeline.Process(context.Background(), EventMessagesUpsert, textEvent("393331234567", "   \n\t "))

	if len(h.dispatch.requests) != 0 || len(h.gateway.sent) != 0 {
		t.Fatal("expected blank text to be dropped")
	}
}

func TestProcessTruncatesLongInput(t *testing.T) {
	h := newHarness(t, 5)
	h.pipeline.Process(context.Background(), EventMessagesUpsert, textEvent("393331234567", "abcdefghij"))

	if len(h.dispatch.requests) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(h.dispatch.requests))
	}
	turns := h.dispatch.requests[0].Messages
	if got := turns[len(turns)-1].Content; got != "abcde" {
		t.Fatalf("truncated text = %q, want abcde", got)
	}
}

func TestProcessHistoryDepth(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	if err := h.settings.Set(ctx, settings.KeyMaxHistory, "2"); err != nil {
		t.Fatalf("failed to set max_history: %v", err)
	}
	for i, content := range []string{"uno", "due", "tre", "quattro"} {
		role := entity.RoleUser
		if i%2 == 1 {
			role = entity.RoleAssistant
		}
		msg := &entity.Message{Phone: "393331234567", Role: role, Content: content}
		if err := h.messages.Save(ctx, msg); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}

	h.pipeline.Process(ctx, EventMessagesUpsert, textEvent("393331234567", "cinque"))

	turns := h.dispatch.requests[0].Messages
	if len(turns) != 3 {
		t.Fatalf("turns = %d, want 2 history + 1 new", len(turns))
	}
	if turns[0].Content != "tre" || turns[1].Content != "quattro" || turns[2].Content != "cinque" {
		t.Fatalf("unexpected turn order: %+v", turns)
	}
}

func TestProcessNonPositiveHistoryLimitStaysBounded(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	if err := h.settings.Set(ctx, settings.KeyMaxHistory, "-1"); err != nil {
		t.Fatalf("failed to set max_history: %v", err)
	}
	for i := 0; i < 60; i++ {
		msg := &entity.Message{Phone: "393331234567", Role: entity.RoleUser, Content: "vecchio"}
		if err := h.messages.Save(ctx, msg); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}

	h.pipeline.Process(ctx, EventMessagesUpsert, textEvent("393331234567", "nuovo"))

	if len(h.dispatch.requests) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(h.dispatch.requests))
	}
	if turns := h.dispatch.requests[0].Messages; len(turns) != 51 {
		t.Fatalf("turns = %d, want the default 50 history + 1 new", len(turns))
	}
}

func TestProcessHandoffSkipsLLM(t *testing.T) {
	h := newHarness(t, 0)
	h.handoff.triggered = true

	h.pipeline.Process(context.Background(), EventMessagesUpsert, textEvent("393331234567", "voglio un operatore"))

	if len(h.dispatch.requests) != 0 {
		t.Fatal("expected dispatcher not to be called on handoff")
	}
	if len(h.gateway.sent) != 1 || h.gateway.sent[0] != handoffReply {
		t.Fatalf("sent = %v, want handoff reply", h.gateway.sent)
	}

	saved := h.savedMessages(t, "393331234567")
	if len(saved) != 2 || saved[1].Content != handoffReply {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestProcessMissingCredential(t *testing.T) {
	h := newHarness(t, 0)
	h.settings = settings.NewService(
		persistence.NewMemorySettingsRepository(),
		config.ProvidersConfig{},
		config.SMTPConfig{},
	)
	h.pipeline = New(h.messages, h.settings, h.gateway, h.transcribe,
		h.describe, h.dispatch, h.handoff, 0, zap.NewNop())

	h.pipeline.Process(context.Background(), EventMessagesUpsert, textEvent("393331234567", "Ciao"))

	if len(h.dispatch.requests) != 0 {
		t.Fatal("expected no dispatch without a credential")
	}
	if len(h.gateway.sent) != 1 || h.gateway.sent[0] != notConfiguredMsg {
		t.Fatalf("sent = %v, want not-configured message", h.gateway.sent)
	}
	if len(h.savedMessages(t, "393331234567")) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestProcessDispatchFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.dispatch.err = errors.New("vendor exploded")

	h.pipeline.Process(context.Background(), EventMessagesUpsert, textEvent("393331234567", "Ciao"))

	if len(h.gateway.sent) != 1 || h.gateway.sent[0] != llmApology {
		t.Fatalf("sent = %v, want apology", h.gateway.sent)
	}
	if len(h.savedMessages(t, "393331234567")) != 0 {
		t.Fatal("expected nothing persisted on dispatch failure")
	}
}

func voiceEvent(phone string) map[string]any {
	return map[string]any{
		"key": map[string]any{
			"remoteJid": phone + "@s.whatsapp.net",
			"fromMe":    false,
			"id":        "VOICE1",
		},
		"message": map[string]any{"audioMessage": map[string]any{"mimetype": "audio/ogg"}},
	}
}

func TestProcessVoiceMessage(t *testing.T) {
	h := newHarness(t, 0)
	h.pipeline.Process(context.Background(), EventMessagesUpsert, voiceEvent("393331234567"))

	if len(h.dispatch.requests) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(h.dispatch.requests))
	}
	turns := h.dispatch.requests[0].Messages
	if turns[len(turns)-1].Content != "messaggio trascritto" {
		t.Fatalf("dispatched content = %q", turns[len(turns)-1].Content)
	}

	saved := h.savedMessages(t, "393331234567")
	if len(saved) != 2 || saved[0].MediaType != string(entity.MediaVoice) {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestProcessVoiceFailureSendsApology(t *testing.T) {
	h := newHarness(t, 0)
	h.transcribe.err = errors.New("whisper down")

	h.pipeline.Process(context.Background(), EventMessagesUpsert, voiceEvent("393331234567"))

	if len(h.dispatch.requests) != 0 {
		t.Fatal("expected no dispatch after transcription failure")
	}
	if len(h.gateway.sent) != 1 || h.gateway.sent[0] != voiceApology {
		t.Fatalf("sent = %v, want voice apology", h.gateway.sent)
	}
	if len(h.savedMessages(t, "393331234567")) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func imageEvent(phone, caption string) map[string]any {
	img := map[string]any{"mimetype": "image/png"}
	if caption != "" {
		img["caption"] = caption
	}
	return map[string]any{
		"key": map[string]any{
			"remoteJid": phone + "@s.whatsapp.net",
			"fromMe":    false,
			"id":        "IMG1",
		},
		"message": map[string]any{"imageMessage": img},
	}
}

func TestProcessImageWithCaption(t *testing.T) {
	h := newHarness(t, 0)
	h.pipeline.Process(context.Background(), EventMessagesUpsert, imageEvent("393331234567", "guarda qui"))

	turns := h.dispatch.requests[0].Messages
	content := turns[len(turns)-1].Content
	if !strings.Contains(content, "un gatto sul divano") || !strings.Contains(content, "guarda qui") {
		t.Fatalf("dispatched content = %q", content)
	}

	saved := h.savedMessages(t, "393331234567")
	if saved[0].MediaType != string(entity.MediaImage) {
		t.Fatalf("media type = %q, want image", saved[0].MediaType)
	}
}

func TestProcessImageFailureFallsBackToCaption(t *testing.T) {
	h := newHarness(t, 0)
	h.describe.err = errors.New("vision down")

	h.pipeline.Process(context.Background(), EventMessagesUpsert, imageEvent("393331234567", "guarda qui"))

	turns := h.dispatch.requests[0].Messages
	if got := turns[len(turns)-1].Content; got != "guarda qui" {
		t.Fatalf("dispatched content = %q, want bare caption", got)
	}
}

func TestProcessImageFailureWithoutCaption(t *testing.T) {
	h := newHarness(t, 0)
	h.describe.err = errors.New("vision down")

	h.pipeline.Process(context.Background(), EventMessagesUpsert, imageEvent("393331234567", ""))

	turns := h.dispatch.requests[0].Messages
	if got := turns[len(turns)-1].Content; got != imageFallback {
		t.Fatalf("dispatched content = %q, want placeholder", got)
	}
}

func TestProcessExtendedText(t *testing.T) {
	h := newHarness(t, 0)
	data := map[string]any{
		"key": map[string]any{"remoteJid": "393331234567@s.whatsapp.net", "fromMe": false},
		"message": map[string]any{
			"extendedTextMessage": map[string]any{"text": "link condiviso"},
		},
	}
	h.pipeline.Process(context.Background(), EventMessagesUpsert, data)

	if len(h.dispatch.requests) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(h.dispatch.requests))
	}
	turns := h.dispatch.requests[0].Messages
	if turns[len(turns)-1].Content != "link condiviso" {
		t.Fatalf("dispatched content = %q", turns[len(turns)-1].Content)
	}
}
