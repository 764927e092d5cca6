package models

import "time"

// WebhookLog keeps every verified provider callback for audit.
type WebhookLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Provider  string    `gorm:"index;not null" json:"provider"`
	EventType string    `json:"event_type"`
	Reference string    `gorm:"index" json:"reference"`
	Payload   string    `gorm:"type:text" json:"payload"`
	Processed bool      `gorm:"default:false" json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}
