package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TableProfiles       = "profiles"
	TableDoctors        = "doctors"
	TablePatients       = "patients"
	TablePharmacies     = "pharmacies"
	TablePrescriptions  = "prescriptions"
	TableFulfillmentLog = "fulfillment_logs"
	TableHealthRecords  = "health_records"
	TableAppointments   = "appointments"
	TableMessages       = "messages"
	TableNotifications  = "notifications"
	TableSystemLogs     = "system_logs"
)

type Role string

const (
	RoleDoctor     Role = "doctor"
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RolePatient, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// Profile is the account record. Role is fixed at creation.
type Profile struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	FullName     string    `json:"full_name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Phone        *string   `json:"phone"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return TableProfiles }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BeforeUpdate keeps role immutable for updates issued through the model.
func (p *Profile) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("Role") {
		return gorm.ErrInvalidData
	}
	return nil
}

type Doctor struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	Profile        *Profile  `json:"profile,omitempty" gorm:"foreignKey:ID;references:ID"`
	Specialization string    `json:"specialization" gorm:"not null"`
	LicenseNumber  *string   `json:"license_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Doctor) TableName() string { return TableDoctors }

type Patient struct {
	ID                  string     `json:"id" gorm:"type:uuid;primaryKey"`
	Profile             *Profile   `json:"profile,omitempty" gorm:"foreignKey:ID;references:ID"`
	DateOfBirth         *time.Time `json:"date_of_birth"`
	MedicalRecordNumber *string    `json:"medical_record_number"`
	EmergencyContact    *string    `json:"emergency_contact"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Patient) TableName() string { return TablePatients }
