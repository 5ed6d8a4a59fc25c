package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type HealthRecord struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	PatientID    string         `json:"patient_id" gorm:"type:uuid;not null;index"`
	DoctorID     *string        `json:"doctor_id" gorm:"type:uuid"`
	RecordType   string         `json:"record_type" gorm:"not null"`
	Title        string         `json:"title" gorm:"not null"`
	Content      datatypes.JSON `json:"content" gorm:"type:jsonb"`
	FileURL      *string        `json:"file_url"`
	RecordedDate time.Time      `json:"recorded_date" gorm:"index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (HealthRecord) TableName() string { return TableHealthRecords }

func (r *HealthRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RecordedDate.IsZero() {
		r.RecordedDate = time.Now()
	}
	return nil
}

// Message is immutable once stored.
type Message struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	SenderID       string    `json:"sender_id" gorm:"type:uuid;not null;index:idx_messages_pair"`
	ReceiverID     string    `json:"receiver_id" gorm:"type:uuid;not null;index:idx_messages_pair"`
	Message        string    `json:"message" gorm:"not null"`
	MessageType    string    `json:"message_type" gorm:"default:'text'"`
	AppointmentID  *string   `json:"appointment_id" gorm:"type:uuid"`
	PrescriptionID *string   `json:"prescription_id" gorm:"type:uuid"`
	FileURL        *string   `json:"file_url"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

func (Message) TableName() string { return TableMessages }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.MessageType == "" {
		m.MessageType = "text"
	}
	return nil
}

func (m *Message) BeforeUpdate(tx *gorm.DB) error { return gorm.ErrInvalidData }
func (m *Message) BeforeDelete(tx *gorm.DB) error { return gorm.ErrInvalidData }

// ThreadScope optionally narrows a thread to one appointment or prescription.
type ThreadScope struct {
	AppointmentID  *string
	PrescriptionID *string
}

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// NormalizeNotificationType maps empty or unknown values to info.
func NormalizeNotificationType(t string) NotificationType {
	switch NotificationType(strings.ToLower(strings.TrimSpace(t))) {
	case NotificationWarning:
		return NotificationWarning
	case NotificationSuccess:
		return NotificationSuccess
	case NotificationError:
		return NotificationError
	}
	return NotificationInfo
}

type Notification struct {
	ID        string           `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    string           `json:"user_id" gorm:"type:uuid;not null;index"`
	Title     string           `json:"title" gorm:"not null"`
	Message   string           `json:"message" gorm:"not null"`
	Type      NotificationType `json:"type" gorm:"type:varchar(20);default:'info'"`
	Read      bool             `json:"read" gorm:"default:false;index"`
	CreatedAt time.Time        `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return TableNotifications }

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Type = NormalizeNotificationType(string(n.Type))
	return nil
}

// SystemLog is write-once.
type SystemLog struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    *string        `json:"user_id" gorm:"type:uuid;index"`
	Action    string         `json:"action" gorm:"not null"`
	Details   datatypes.JSON `json:"details" gorm:"type:jsonb"`
	IPAddress *string        `json:"ip_address"`
	UserAgent *string        `json:"user_agent"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

func (SystemLog) TableName() string { return TableSystemLogs }

func (l *SystemLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (l *SystemLog) BeforeUpdate(tx *gorm.DB) error { return gorm.ErrInvalidData }
func (l *SystemLog) BeforeDelete(tx *gorm.DB) error { return gorm.ErrInvalidData }
