package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Pharmacy struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string    `json:"name" gorm:"not null;index"`
	Address       string    `json:"address" gorm:"not null"`
	Phone         *string   `json:"phone"`
	Email         *string   `json:"email"`
	ZipCode       *string   `json:"zip_code" gorm:"index"`
	LicenseNumber *string   `json:"license_number"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Pharmacy) TableName() string { return TablePharmacies }

func (p *Pharmacy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
