package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

// DocumentService answers document reads and deletes on behalf of one user.
// Every operation checks ownership; another user's document is reported as
// not found rather than forbidden.
type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient // nil when the raw-payload archive is disabled
	bucket  string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, bucket: bucket}
}

func (s *DocumentService) Get(ctx context.Context, userID, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != userID {
		return nil, fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID string, filter core.DocumentFilter) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, userID, filter)
}

func (s *DocumentService) Chunks(ctx context.Context, userID, documentID string) ([]models.DocumentChunk, error) {
	if _, err := s.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.db.GetChunksByDocument(ctx, documentID)
}

// Delete removes the document (chunks cascade) and best-effort deletes its
// archived payload from object storage.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if s.storage != nil && doc.StorageURL != "" {
		bucket, key := parseS3URL(doc.StorageURL)
		if bucket == "" || key == "" {
			log.Printf("documents: cannot parse archive url %q for %s", doc.StorageURL, id)
			return nil
		}
		if err := s.storage.DeleteFile(ctx, bucket, key); err != nil {
			log.Printf("documents: archive cleanup failed for %s: %v", id, err)
		}
	}
	return nil
}

// parseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL,
// e.g. https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf.
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if i := strings.Index(host, ".s3."); i > 0 {
		bucket = host[:i]
	}
	return bucket, key
}
