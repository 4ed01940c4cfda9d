package model

import "time"

// Message is both the stored row and the wire shape. RelatedID links an
// assistant reply to the user message that produced it and is never sent
// to clients.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsUser    bool      `gorm:"not null;index" json:"is_user"`
	RelatedID *uint     `gorm:"index" json:"-"`
	CreatedAt time.Time `json:"-"`
}
