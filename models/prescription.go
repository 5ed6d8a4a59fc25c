package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meinhoongagan/medicnote/errs"
	"gorm.io/gorm"
)

// ClinicalStatus is the doctor-side state of a prescription.
type ClinicalStatus string

const (
	StatusActive    ClinicalStatus = "active"
	StatusPending   ClinicalStatus = "pending"
	StatusCompleted ClinicalStatus = "completed"
	StatusCancelled ClinicalStatus = "cancelled"
)

func (s ClinicalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CheckTransition validates a clinical status change. Completed and
// cancelled prescriptions are closed.
func (s ClinicalStatus) CheckTransition(next ClinicalStatus) error {
	ok := false
	switch s {
	case StatusPending:
		ok = next == StatusActive || next == StatusCancelled
	case StatusActive:
		ok = next == StatusCompleted || next == StatusCancelled
	}
	if !ok || !next.Valid() {
		return &errs.InvalidTransitionError{Kind: "prescription status", From: string(s), To: string(next)}
	}
	return nil
}

// FulfillmentStatus is the pharmacy pipeline state of a prescription.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentApproved  FulfillmentStatus = "approved"
	FulfillmentPreparing FulfillmentStatus = "preparing"
	FulfillmentReady     FulfillmentStatus = "ready"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentRejected  FulfillmentStatus = "rejected"
)

var fulfillmentNext = map[FulfillmentStatus]FulfillmentStatus{
	FulfillmentPending:   FulfillmentApproved,
	FulfillmentApproved:  FulfillmentPreparing,
	FulfillmentPreparing: FulfillmentReady,
	FulfillmentReady:     FulfillmentDelivered,
}

func (s FulfillmentStatus) Valid() bool {
	switch s {
	case FulfillmentPending, FulfillmentApproved, FulfillmentPreparing,
		FulfillmentReady, FulfillmentDelivered, FulfillmentRejected:
		return true
	}
	return false
}

func (s FulfillmentStatus) Terminal() bool {
	return s == FulfillmentDelivered || s == FulfillmentRejected
}

// Next returns the single forward successor, if any.
func (s FulfillmentStatus) Next() (FulfillmentStatus, bool) {
	n, ok := fulfillmentNext[s]
	return n, ok
}

// CanTransitionTo reports whether next is reachable in one step: the forward
// successor, or rejected from any non-terminal state.
func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == FulfillmentRejected {
		return true
	}
	n, ok := fulfillmentNext[s]
	return ok && n == next
}

func (s FulfillmentStatus) CheckTransition(next FulfillmentStatus) error {
	if !s.CanTransitionTo(next) {
		return &errs.InvalidTransitionError{Kind: "fulfillment", From: string(s), To: string(next)}
	}
	return nil
}

type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Instructions string `json:"instructions"`
}

type Prescription struct {
	ID                string            `json:"id" gorm:"type:uuid;primaryKey"`
	PatientID         string            `json:"patient_id" gorm:"type:uuid;not null;index"`
	DoctorID          string            `json:"doctor_id" gorm:"type:uuid;not null;index"`
	Diagnosis         string            `json:"diagnosis" gorm:"not null"`
	Medications       []Medication      `json:"medications" gorm:"type:jsonb;serializer:json;not null"`
	Notes             *string           `json:"notes"`
	DateIssued        time.Time         `json:"date_issued" gorm:"index"`
	Status            ClinicalStatus    `json:"status" gorm:"type:varchar(20);default:'active'"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status" gorm:"type:varchar(20);default:'pending';index"`
	FulfillmentNotes  *string           `json:"fulfillment_notes"`
	PharmacyID        *string           `json:"pharmacy_id" gorm:"type:uuid;index"`
	Pharmacy          *Pharmacy         `json:"pharmacy,omitempty" gorm:"foreignKey:PharmacyID"`
	PDFURL            *string           `json:"pdf_url"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (Prescription) TableName() string { return TablePrescriptions }

func (p *Prescription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.FulfillmentStatus == "" {
		p.FulfillmentStatus = FulfillmentPending
	}
	return nil
}

// FulfillmentLog is an append-only audit row for a prescription.
type FulfillmentLog struct {
	ID             string            `json:"id" gorm:"type:uuid;primaryKey"`
	PrescriptionID string            `json:"prescription_id" gorm:"type:uuid;not null;index"`
	PharmacyID     *string           `json:"pharmacy_id" gorm:"type:uuid"`
	Status         FulfillmentStatus `json:"status" gorm:"type:varchar(20);not null"`
	Notes          string            `json:"notes"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (FulfillmentLog) TableName() string { return TableFulfillmentLog }

func (l *FulfillmentLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (l *FulfillmentLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

func (l *FulfillmentLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

// FulfillmentChange is one compare-and-set step of the fulfillment pipeline:
// the prescription moves From -> To only if it is still in From, and Log is
// inserted in the same unit of work.
type FulfillmentChange struct {
	PrescriptionID string
	From           FulfillmentStatus
	To             FulfillmentStatus
	PharmacyID     *string
	Notes          *string
	Log            *FulfillmentLog
}
