package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meinhoongagan/medicnote/errs"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

const DefaultAppointmentMinutes = 30

type Appointment struct {
	ID              string            `json:"id" gorm:"type:uuid;primaryKey"`
	PatientID       string            `json:"patient_id" gorm:"type:uuid;not null;index"`
	DoctorID        string            `json:"doctor_id" gorm:"type:uuid;not null;index"`
	AppointmentDate time.Time         `json:"appointment_date" gorm:"not null;index"`
	DurationMinutes int               `json:"duration_minutes" gorm:"default:30"`
	Status          AppointmentStatus `json:"status" gorm:"type:varchar(20);default:'scheduled'"`
	Notes           *string           `json:"notes"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Appointment) TableName() string { return TableAppointments }

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	a.applyDefaults()
	return nil
}

func (a *Appointment) applyDefaults() {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = DefaultAppointmentMinutes
	}
}

// ApplyDefaults fills ID, status and duration for stores that bypass gorm hooks.
func (a *Appointment) ApplyDefaults() { a.applyDefaults() }

// CheckTransition validates a status change against the booking lifecycle.
func (a *Appointment) CheckTransition(newStatus AppointmentStatus) error {
	ok := false
	switch a.Status {
	case AppointmentScheduled:
		ok = newStatus == AppointmentConfirmed || newStatus == AppointmentCancelled
	case AppointmentConfirmed:
		ok = newStatus == AppointmentCompleted || newStatus == AppointmentCancelled
	case AppointmentCompleted, AppointmentCancelled:
		ok = false
	}
	if !ok {
		return &errs.InvalidTransitionError{Kind: "appointment", From: string(a.Status), To: string(newStatus)}
	}
	return nil
}

// End is the scheduled end of the appointment.
func (a *Appointment) End() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
