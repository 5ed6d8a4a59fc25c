package db

import (
	"fmt"

	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/models"
	"gorm.io/gorm"
)

// Models lists every table owned by the backend, in creation order.
func Models() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Doctor{},
		&models.Patient{},
		&models.Pharmacy{},
		&models.Prescription{},
		&models.FulfillmentLog{},
		&models.Appointment{},
		&models.HealthRecord{},
		&models.Message{},
		&models.Notification{},
		&models.SystemLog{},
	}
}

// Migrate runs AutoMigrate only when explicitly called
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Log.Info().Int("tables", len(Models())).Msg("migrations applied")
	return nil
}
