package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/pipeline"
	"github.com/markdave123-py/Memora/internal/models"
)

// TaskSubmitter is the slice of the pipeline the ingest service drives.
type TaskSubmitter interface {
	Submit(ctx context.Context, userID, documentID string, src pipeline.Source) (*models.TaskRecord, error)
	ActiveTaskForDocument(documentID string) (*models.TaskRecord, bool)
}

// IngestRequest is one submission: exactly one of URL or Text must be set.
type IngestRequest struct {
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`
}

// IngestResult reports what a submission did. Duplicate submissions return
// the existing document (and its running task, if any) instead of starting
// a second ingestion.
type IngestResult struct {
	Task      *models.TaskRecord
	Document  *models.Document
	Duplicate bool
}

// IngestService owns the submission policy: validation, duplicate handling,
// document creation, the optional raw-payload archive, and handing the task
// to the pipeline.
type IngestService struct {
	db       core.DbClient
	storage  core.ObjectClient // nil disables the upload archive
	bucket   string
	pipeline TaskSubmitter
}

func NewIngestService(db core.DbClient, storage core.ObjectClient, bucket string, p TaskSubmitter) *IngestService {
	return &IngestService{db: db, storage: storage, bucket: bucket, pipeline: p}
}

// Submit accepts a URL or raw-text submission.
//
// URL submissions are deduplicated per user: a document already being
// processed short-circuits to its running task, a completed one to the stored
// document, and a failed one is reset and re-ingested.
func (s *IngestService) Submit(ctx context.Context, userID string, req IngestRequest) (*IngestResult, error) {
	hasURL := strings.TrimSpace(req.URL) != ""
	hasText := strings.TrimSpace(req.Text) != ""
	if hasURL == hasText {
		return nil, fmt.Errorf("%w: provide exactly one of url or text", core.ErrValidation)
	}
	if hasURL {
		return s.submitURL(ctx, userID, req)
	}
	return s.submitText(ctx, userID, req)
}

func (s *IngestService) submitURL(ctx context.Context, userID string, req IngestRequest) (*IngestResult, error) {
	rawURL := strings.TrimSpace(req.URL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", core.ErrValidation, req.URL)
	}

	existing, err := s.db.FindDocumentByURL(ctx, userID, rawURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.resubmit(ctx, userID, existing, req)
	}

	doc := s.newDocument(userID, req.Title)
	doc.SourceURL = rawURL
	doc.SourceType = models.SourceTypeURL
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	rec, err := s.pipeline.Submit(ctx, userID, doc.ID, pipeline.Source{
		Type:  models.SourceTypeURL,
		URL:   rawURL,
		Title: strings.TrimSpace(req.Title),
	})
	if err != nil {
		return nil, err
	}
	return &IngestResult{Task: rec, Document: doc}, nil
}

// resubmit applies the duplicate policy for a URL the user already submitted.
func (s *IngestService) resubmit(ctx context.Context, userID string, existing *models.Document, req IngestRequest) (*IngestResult, error) {
	switch existing.Status {
	case models.DocStatusPending, models.DocStatusProcessing:
		if rec, ok := s.pipeline.ActiveTaskForDocument(existing.ID); ok {
			return &IngestResult{Task: rec, Document: existing, Duplicate: true}, nil
		}
		// Marked active but no live task: the process died mid-run.
		// Fall through and run it again.
		fallthrough
	case models.DocStatusFailed:
		if err := s.db.ResetDocument(ctx, existing.ID); err != nil {
			return nil, err
		}
		rec, err := s.pipeline.Submit(ctx, userID, existing.ID, pipeline.Source{
			Type:  models.SourceTypeURL,
			URL:   existing.SourceURL,
			Title: strings.TrimSpace(req.Title),
		})
		if err != nil {
			return nil, err
		}
		return &IngestResult{Task: rec, Document: existing}, nil
	default: // completed
		return &IngestResult{Document: existing, Duplicate: true}, nil
	}
}

func (s *IngestService) submitText(ctx context.Context, userID string, req IngestRequest) (*IngestResult, error) {
	doc := s.newDocument(userID, req.Title)
	doc.SourceType = models.SourceTypeText
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	rec, err := s.pipeline.Submit(ctx, userID, doc.ID, pipeline.Source{
		Type:  models.SourceTypeText,
		Text:  req.Text,
		Title: strings.TrimSpace(req.Title),
	})
	if err != nil {
		return nil, err
	}
	return &IngestResult{Task: rec, Document: doc}, nil
}

// SubmitUpload ingests an uploaded file. The raw bytes are archived to object
// storage when it is configured; archive failure is logged, not fatal, since
// the pipeline works from the in-memory payload.
func (s *IngestService) SubmitUpload(ctx context.Context, userID, filename, contentType string, data []byte, title string) (*IngestResult, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: missing file name", core.ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", core.ErrValidation)
	}

	doc := s.newDocument(userID, title)
	doc.SourceType = models.SourceTypeUpload
	doc.FileName = filename

	if s.storage != nil {
		key := s.objectKey(userID, doc.ID, filename)
		storageURL, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
		if err != nil {
			log.Printf("ingest: archive upload failed for %s: %v", filename, err)
		} else {
			doc.StorageURL = storageURL
		}
	}

	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	rec, err := s.pipeline.Submit(ctx, userID, doc.ID, pipeline.Source{
		Type:        models.SourceTypeUpload,
		Title:       strings.TrimSpace(title),
		FileName:    filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return nil, err
	}
	return &IngestResult{Task: rec, Document: doc}, nil
}

func (s *IngestService) newDocument(userID, title string) *models.Document {
	now := time.Now()
	return &models.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Status:    models.DocStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// objectKey builds a consistent archive layout: users/<user>/documents/<doc>/<file>.
func (s *IngestService) objectKey(userID, docID, filename string) string {
	filename = strings.ReplaceAll(strings.TrimSpace(filename), " ", "_")
	return path.Join("users", userID, "documents", docID, filename)
}
