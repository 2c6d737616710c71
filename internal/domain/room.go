package domain

import "time"

// Room is a named channel grouping the connections that receive each
// other's messages. Name is nullable: private/direct rooms carry no
// public name. The unique index on Name is what makes concurrent
// get-or-create of the same name resolve to a single row.
type Room struct {
	ID         uint      `gorm:"primaryKey"`
	Name       *string   `gorm:"type:varchar(191);uniqueIndex:idx_room_name"`
	IsPrivate  bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	LastActive time.Time `gorm:"index"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`

	Members []User `gorm:"many2many:room_members"`
}
