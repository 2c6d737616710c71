package domain

import "time"

// Message is one persisted chat payload. SenderID is nullable: messages
// from unauthenticated connections are stored without an owner. Rows are
// append-only; nothing in the service updates or deletes them.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"index;not null"`
	SenderID  *uint     `gorm:"index"`
	RoomID    uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
