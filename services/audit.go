package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/repository"
	"gorm.io/datatypes"
)

// Audit actions recorded by the services.
const (
	ActionLogin               = "user.login"
	ActionRegister            = "user.register"
	ActionPrescriptionCreated = "prescription.created"
	ActionPrescriptionStatus  = "prescription.status_changed"
	ActionFulfillmentChanged  = "prescription.fulfillment_changed"
	ActionPharmacyAssigned    = "prescription.pharmacy_assigned"
	ActionPharmacyRegistered  = "pharmacy.registered"
)

type AuditEntry struct {
	UserID    string
	Action    string
	Details   map[string]interface{}
	IPAddress string
	UserAgent string
}

// AuditService writes the system log. Rows are never updated.
type AuditService struct {
	logs repository.SystemLogs
}

func NewAuditService(logs repository.SystemLogs) *AuditService {
	return &AuditService{logs: logs}
}

func (s *AuditService) Record(ctx context.Context, e AuditEntry) (*models.SystemLog, error) {
	if strings.TrimSpace(e.Action) == "" {
		return nil, errs.Required("action")
	}
	row := &models.SystemLog{Action: e.Action}
	if e.UserID != "" {
		id := e.UserID
		row.UserID = &id
	}
	if e.IPAddress != "" {
		ip := e.IPAddress
		row.IPAddress = &ip
	}
	if e.UserAgent != "" {
		ua := e.UserAgent
		row.UserAgent = &ua
	}
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, errs.Invalid("details", "not serializable: %v", err)
		}
		row.Details = datatypes.JSON(raw)
	}
	if err := s.logs.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// recordQuietly is used after a committed write, where an audit failure
// must not turn a success into an error.
func (s *AuditService) recordQuietly(ctx context.Context, e AuditEntry) {
	if s == nil {
		return
	}
	if _, err := s.Record(ctx, e); err != nil {
		logWarn(err, "record audit entry", e.Action)
	}
}
