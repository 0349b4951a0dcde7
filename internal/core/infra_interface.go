package core

import (
	"context"
	"io"
	"time"

	"github.com/markdave123-py/Memora/internal/models"
)

// DocumentFilter narrows a document listing before any scoring happens.
// Zero values mean "no constraint".
type DocumentFilter struct {
	Status      string
	ContentType string
	Quality     string
	Tag         string
	From        time.Time
	To          time.Time
	SortBy      string // date | quality | reading_time | complexity | word_count
	Limit       int
	Offset      int
}

// ChunkMatch is one chunk returned by vector search, with its similarity
// to the query embedding (1 - cosine distance).
type ChunkMatch struct {
	Chunk      models.DocumentChunk
	Similarity float64
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	// FindDocumentByURL returns the owner's document for a source URL, or
	// (nil, nil) when none exists. Backs the duplicate-submission check.
	FindDocumentByURL(ctx context.Context, userID, sourceURL string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string, filter DocumentFilter) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error
	// UpdateDocumentContent stores the normalized text and extracted title
	// after the extraction stage.
	UpdateDocumentContent(ctx context.Context, id, title, content string) error
	// UpdateDocumentAnalysis persists annotations and classifier metadata
	// produced by the pipeline.
	UpdateDocumentAnalysis(ctx context.Context, doc *models.Document) error
	// ResetDocument returns a failed document to pending and drops its chunks,
	// preparing a re-ingestion run.
	ResetDocument(ctx context.Context, id string) error
	DeleteDocument(ctx context.Context, id string) error

	// ReplaceDocumentChunks swaps the document's chunk set in one transaction
	// (delete then insert), so a retried storage stage never leaves a partial
	// mix of old and new chunks behind.
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	// SearchChunks runs vector search over the user's completed documents.
	// docIDs, when non-empty, restricts candidates to that pre-filtered set.
	// Matches below minSimilarity are dropped.
	SearchChunks(ctx context.Context, userID string, queryVec []float32, docIDs []string, minSimilarity float64, limit int) ([]ChunkMatch, error)

	UpsertTaskRecord(ctx context.Context, rec *models.TaskRecord) error
	GetTaskRecord(ctx context.Context, taskID string) (*models.TaskRecord, error)

	CreateSession(ctx context.Context, s *models.ConversationSession) error
	GetSession(ctx context.Context, id string) (*models.ConversationSession, error)
	UpdateSession(ctx context.Context, s *models.ConversationSession) error
	ListSessionsByUser(ctx context.Context, userID string) ([]models.ConversationSession, error)
	DeleteSession(ctx context.Context, id string) error

	InsertMessage(ctx context.Context, m *models.ConversationMessage) error
	ListMessagesBySession(ctx context.Context, sessionID string) ([]models.ConversationMessage, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
