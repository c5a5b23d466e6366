package db

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"helpdesk/internal/model"
)

var models = []interface{}{
	&model.Ticket{},
}

// Migrate brings the schema up to date. gorm derives the DDL per dialect, so
// the same call serves postgres, mysql and sqlite.
func Migrate(database *gorm.DB, log zerolog.Logger) error {
	for _, m := range models {
		if err := database.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto migrate %T: %w", m, err)
		}
	}
	log.Info().Int("models", len(models)).Msg("database migrated")
	return nil
}
