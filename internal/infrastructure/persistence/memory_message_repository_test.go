package persistence

import (
	"context"
	"testing"

	"github.com/zeroxtech/zeno/internal/domain/entity"
)

func seedMessage(t *testing.T, repo *MemoryMessageRepository, phone string, role entity.Role, content string) {
	t.Helper()
	msg := &entity.Message{Phone: phone, Role: role, Content: content}
	if err := repo.Save(context.Background(), msg); err != nil {
		t.Fatalf("failed to save message: %v", err)
	}
}

func TestSaveRejectsInvalidRole(t *testing.T) {
	repo := NewMemoryMessageRepository()
	msg := &entity.Message{Phone: "393331234567", Role: "system", Content: "x"}
	if err := repo.Save(context.Background(), msg); err == nil {
		t.Fatal("expected invalid role to be rejected")
	}
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryMessageRepository()
	msg := &entity.Message{Phone: "393331234567", Role: entity.RoleUser, Content: "ciao"}
	if err := repo.Save(context.Background(), msg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be assigned")
	}
}

func TestHistoryReturnsLastN(t *testing.T) {
	repo := NewMemoryMessageRepository()
	for _, content := range []string{"uno", "due", "tre", "quattro"} {
		seedMessage(t, repo, "393331234567", entity.RoleUser, content)
	}
	seedMessage(t, repo, "390000000000", entity.RoleUser, "altro utente")

	history, err := repo.History(context.Background(), "393331234567", 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
	if history[0].Content != "tre" || history[1].Content != "quattro" {
		t.Fatalf("unexpected history order: %+v", history)
	}
}

func TestSearchPaginates(t *testing.T) {
	repo := NewMemoryMessageRepository()
	for i := 0; i < 5; i++ {
		seedMessage(t, repo, "393331234567", entity.RoleUser, "Ordine spedito")
	}
	seedMessage(t, repo, "393331234567", entity.RoleUser, "altro")

	page, err := repo.Search(context.Background(), "ordine", 1, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if page.Pagination.Total != 5 {
		t.Fatalf("total = %d, want 5", page.Pagination.Total)
	}
	if page.Pagination.TotalPages != 3 {
		t.Fatalf("totalPages = %d, want 3", page.Pagination.TotalPages)
	}
	if len(page.Data) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Data))
	}
}

func TestSearchNoMatches(t *testing.T) {
	repo := NewMemoryMessageRepository()
	seedMessage(t, repo, "393331234567", entity.RoleUser, "ciao")

	page, err := repo.Search(context.Background(), "inesistente", 1, 20)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if page.Pagination.Total != 0 || page.Pagination.TotalPages != 0 {
		t.Fatalf("pagination = %+v, want zero total and pages", page.Pagination)
	}
	if len(page.Data) != 0 {
		t.Fatalf("data = %d entries, want 0", len(page.Data))
	}
}

func TestListConversations(t *testing.T) {
	repo := NewMemoryMessageRepository()
	seedMessage(t, repo, "390000000001", entity.RoleUser, "primo")
	seedMessage(t, repo, "390000000002", entity.RoleUser, "secondo")
	seedMessage(t, repo, "390000000001", entity.RoleAssistant, "risposta")

	page, err := repo.ListConversations(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("conversations = %d, want 2", len(page.Data))
	}

	first := page.Data[0]
	if first.Phone != "390000000001" {
		t.Fatalf("expected most recently active conversation first, got %q", first.Phone)
	}
	if first.MessageCount != 2 || first.LastMessage != "risposta" {
		t.Fatalf("summary = %+v", first)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	repo := NewMemoryMessageRepository()
	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMessages != 0 || stats.TotalConversations != 0 || stats.MessagesToday != 0 || stats.ActiveToday != 0 {
		t.Fatalf("stats = %+v, want all zero", stats)
	}
}

func TestStatsCounts(t *testing.T) {
	repo := NewMemoryMessageRepository()
	seedMessage(t, repo, "390000000001", entity.RoleUser, "ciao")
	seedMessage(t, repo, "390000000001", entity.RoleAssistant, "ciao!")
	seedMessage(t, repo, "390000000002", entity.RoleUser, "salve")

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMessages != 3 {
		t.Fatalf("totalMessages = %d", stats.TotalMessages)
	}
	if stats.TotalConversations != 2 {
		t.Fatalf("totalConversations = %d", stats.TotalConversations)
	}
	if stats.MessagesToday != 3 || stats.ActiveToday != 2 {
		t.Fatalf("today counters = %d/%d", stats.MessagesToday, stats.ActiveToday)
	}
}
