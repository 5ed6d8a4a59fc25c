package services

import (
	"context"
	"strings"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
)

// PharmacyService covers the pharmacy side of fulfillment: the directory
// and the queues a pharmacist works from.
type PharmacyService struct {
	pharmacies    repository.Pharmacies
	prescriptions repository.Prescriptions
	audit         *AuditService
	feed          realtime.Feed
}

func NewPharmacyService(store *repository.Store, audit *AuditService, feed realtime.Feed) *PharmacyService {
	return &PharmacyService{
		pharmacies:    store.Pharmacies,
		prescriptions: store.Prescriptions,
		audit:         audit,
		feed:          feed,
	}
}

// Search lists pharmacies ordered by name, filtered by zip code when given.
func (s *PharmacyService) Search(ctx context.Context, zip string) ([]models.Pharmacy, error) {
	return s.pharmacies.Search(ctx, strings.TrimSpace(zip))
}

func (s *PharmacyService) Register(ctx context.Context, actor Actor, p *models.Pharmacy) (*models.Pharmacy, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	if p.Name == "" {
		return nil, errs.Required("name")
	}
	if p.Address == "" {
		return nil, errs.Required("address")
	}
	p.ID = ""
	if err := s.pharmacies.Create(ctx, p); err != nil {
		return nil, err
	}
	publish(ctx, s.feed, realtime.NewEvent(models.TablePharmacies, realtime.OpInsert, p.ID, nil))
	s.audit.recordQuietly(ctx, AuditEntry{
		UserID:  actor.ID,
		Action:  ActionPharmacyRegistered,
		Details: map[string]interface{}{"pharmacy_id": p.ID, "name": p.Name},
	})
	return p, nil
}

// ListClaimable returns prescriptions no pharmacy has taken yet.
func (s *PharmacyService) ListClaimable(ctx context.Context) ([]models.Prescription, error) {
	return s.prescriptions.List(ctx, repository.PrescriptionFilter{
		Unassigned:        true,
		FulfillmentStatus: models.FulfillmentPending,
	})
}

func (s *PharmacyService) ListForPharmacy(ctx context.Context, pharmacyID string) ([]models.Prescription, error) {
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.prescriptions.List(ctx, repository.PrescriptionFilter{PharmacyID: pharmacyID})
}
