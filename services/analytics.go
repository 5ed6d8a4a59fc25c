package services

import (
	"context"
	"sort"
	"time"

	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
)

const (
	recentLogLimit  = 10
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// AnalyticsService backs the admin dashboard. It never writes.
type AnalyticsService struct {
	counter       repository.Counter
	prescriptions repository.Prescriptions
	logs          repository.SystemLogs
}

func NewAnalyticsService(store *repository.Store) *AnalyticsService {
	return &AnalyticsService{counter: store.Counter, prescriptions: store.Prescriptions, logs: store.SystemLogs}
}

type Overview struct {
	TotalUsers         int64              `json:"total_users"`
	TotalDoctors       int64              `json:"total_doctors"`
	TotalPatients      int64              `json:"total_patients"`
	TotalPrescriptions int64              `json:"total_prescriptions"`
	RecentLogs         []models.SystemLog `json:"recent_logs"`
}

func (s *AnalyticsService) Overview(ctx context.Context) (*Overview, error) {
	out := &Overview{}
	for _, c := range []struct {
		table string
		dst   *int64
	}{
		{models.TableProfiles, &out.TotalUsers},
		{models.TableDoctors, &out.TotalDoctors},
		{models.TablePatients, &out.TotalPatients},
		{models.TablePrescriptions, &out.TotalPrescriptions},
	} {
		n, err := s.counter.Count(ctx, c.table)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	logs, err := s.logs.ListRecent(ctx, recentLogLimit)
	if err != nil {
		return nil, err
	}
	out.RecentLogs = logs
	return out, nil
}

type MonthBucket struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// MonthlyBuckets counts dates per calendar month (UTC). Buckets come back
// in chronological order whatever the order of dates.
func MonthlyBuckets(dates []time.Time) []MonthBucket {
	counts := make(map[time.Time]int64)
	for _, d := range dates {
		counts[utils.MonthStart(d)]++
	}
	keys := make([]time.Time, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthBucket{Month: utils.MonthLabel(k), Count: counts[k]})
	}
	return out
}

func (s *AnalyticsService) MonthlyPrescriptions(ctx context.Context) ([]MonthBucket, error) {
	dates, err := s.prescriptions.IssueDates(ctx)
	if err != nil {
		return nil, err
	}
	return MonthlyBuckets(dates), nil
}

type StatusCount struct {
	Status models.FulfillmentStatus `json:"status"`
	Count  int64                    `json:"count"`
}

var pipelineOrder = []models.FulfillmentStatus{
	models.FulfillmentPending,
	models.FulfillmentApproved,
	models.FulfillmentPreparing,
	models.FulfillmentReady,
	models.FulfillmentDelivered,
	models.FulfillmentRejected,
}

// FulfillmentBreakdown counts prescriptions per fulfillment status in
// pipeline order, zeros included.
func (s *AnalyticsService) FulfillmentBreakdown(ctx context.Context) ([]StatusCount, error) {
	counts, err := s.prescriptions.CountByFulfillment(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StatusCount, 0, len(pipelineOrder))
	for _, st := range pipelineOrder {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out, nil
}

func (s *AnalyticsService) SystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	return s.logs.ListRecent(ctx, limit)
}
