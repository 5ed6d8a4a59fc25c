package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
	"gorm.io/datatypes"
)

// RecordTypeAll disables the type filter in FilterRecords.
const RecordTypeAll = "all"

type HealthRecordService struct {
	records  repository.HealthRecords
	uploader utils.Uploader
	feed     realtime.Feed
	now      func() time.Time
}

func NewHealthRecordService(records repository.HealthRecords, uploader utils.Uploader, feed realtime.Feed) *HealthRecordService {
	return &HealthRecordService{records: records, uploader: uploader, feed: feed, now: time.Now}
}

type UploadDocumentInput struct {
	PatientID   string
	Title       string
	RecordType  string
	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
}

// documentContent is stored in the record's content column.
type documentContent struct {
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	FileType         string `json:"file_type"`
}

// ObjectKey names an uploaded document: <user>/<unix millis>.<ext>.
func ObjectKey(userID string, at time.Time, filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), strings.ToLower(ext))
}

func (s *HealthRecordService) UploadDocument(ctx context.Context, in UploadDocumentInput) (*models.HealthRecord, error) {
	title := strings.TrimSpace(in.Title)
	recordType := strings.TrimSpace(in.RecordType)
	switch {
	case in.PatientID == "":
		return nil, errs.Required("patient_id")
	case title == "":
		return nil, errs.Required("title")
	case recordType == "":
		return nil, errs.Required("record_type")
	case in.File == nil || in.Size <= 0:
		return nil, errs.Required("file")
	}

	now := s.now()
	url, err := s.uploader.Upload(ctx, ObjectKey(in.PatientID, now, in.Filename), in.File)
	if err != nil {
		return nil, err
	}
	content, err := json.Marshal(documentContent{
		OriginalFilename: in.Filename,
		FileSize:         in.Size,
		FileType:         in.ContentType,
	})
	if err != nil {
		return nil, err
	}

	rec := &models.HealthRecord{
		PatientID:    in.PatientID,
		RecordType:   recordType,
		Title:        title,
		Content:      datatypes.JSON(content),
		FileURL:      &url,
		RecordedDate: now,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.published(ctx, rec)
	return rec, nil
}

// CreateRecord stores a structured record, typically written by a doctor.
func (s *HealthRecordService) CreateRecord(ctx context.Context, rec *models.HealthRecord) (*models.HealthRecord, error) {
	rec.Title = strings.TrimSpace(rec.Title)
	rec.RecordType = strings.TrimSpace(rec.RecordType)
	switch {
	case rec.PatientID == "":
		return nil, errs.Required("patient_id")
	case rec.Title == "":
		return nil, errs.Required("title")
	case rec.RecordType == "":
		return nil, errs.Required("record_type")
	}
	if len(rec.Content) > 0 && !json.Valid(rec.Content) {
		return nil, errs.Invalid("content", "must be a JSON document")
	}
	rec.ID = ""
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.published(ctx, rec)
	return rec, nil
}

func (s *HealthRecordService) published(ctx context.Context, rec *models.HealthRecord) {
	publish(ctx, s.feed, realtime.NewEvent(models.TableHealthRecords, realtime.OpInsert, rec.ID, map[string]string{
		"patient_id": rec.PatientID,
	}))
}

func (s *HealthRecordService) ListForPatient(ctx context.Context, patientID string) ([]models.HealthRecord, error) {
	return s.records.ListByPatient(ctx, patientID)
}

// FilterRecords applies the dashboard filters: a case-insensitive term on
// title or record type, and an exact record type unless it is "all".
func FilterRecords(records []models.HealthRecord, term, recordType string) []models.HealthRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	recordType = strings.TrimSpace(recordType)
	out := make([]models.HealthRecord, 0, len(records))
	for _, r := range records {
		if recordType != "" && recordType != RecordTypeAll && r.RecordType != recordType {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.Title), term) &&
			!strings.Contains(strings.ToLower(r.RecordType), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}
