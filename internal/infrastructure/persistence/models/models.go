package models

import "time"

// MessageModel is the database row for one conversation turn.
// The log is append-only: rows are never updated or deleted.
type MessageModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Phone     string    `gorm:"size:20;not null;index:idx_messages_phone;index:idx_messages_phone_timestamp,priority:1"`
	Role      string    `gorm:"size:16;not null;check:role IN ('user','assistant')"`
	Content   string    `gorm:"type:text;not null"`
	MediaType *string   `gorm:"size:16"`
	MediaURL  *string   `gorm:"size:512"`
	Timestamp time.Time `gorm:"autoCreateTime;index:idx_messages_timestamp;index:idx_messages_phone_timestamp,priority:2"`
}

func (MessageModel) TableName() string {
	return "messages"
}

// ConfigModel is one key-value settings entry.
type ConfigModel struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text;not null"`
}

func (ConfigModel) TableName() string {
	return "config"
}

// AdminUserModel stores an admin credential with a bcrypt hash.
type AdminUserModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:128;not null"`
}

func (AdminUserModel) TableName() string {
	return "admin_users"
}
