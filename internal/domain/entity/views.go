package entity

import "time"

// ConversationSummary is one row of the admin conversation listing.
// Conversations are not stored; they are derived from the message log.
type ConversationSummary struct {
	Phone         string    `json:"phone"`
	LastMessage   string    `json:"lastMessage"`
	LastTimestamp time.Time `json:"lastTimestamp"`
	MessageCount  int64     `json:"messageCount"`
}

// Stats aggregates the message log for the admin dashboard.
type Stats struct {
	TotalMessages      int64 `json:"totalMessages"`
	TotalConversations int64 `json:"totalConversations"`
	MessagesToday      int64 `json:"messagesToday"`
	ActiveToday        int64 `json:"activeToday"`
}

// Pagination describes one page of a paginated result.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes page metadata; zero rows yield zero pages.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// MessagePage is a paginated slice of messages (search results).
type MessagePage struct {
	Data       []Message  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ConversationPage is a paginated slice of conversation summaries.
type ConversationPage struct {
	Data       []ConversationSummary `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

// AdminUser is a stored admin panel credential.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash string
}
