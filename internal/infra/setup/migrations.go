package setup

import (
	"fmt"

	"gorm.io/gorm"

	"realtime-chat/internal/domain"
)

// MigrateDB handles all database migrations using the provided GORM DB
// instance. The models carry sized varchar columns for every indexed
// string, so AutoMigrate is sufficient on MySQL.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Message{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate tables: %w", err)
	}
	return nil
}
