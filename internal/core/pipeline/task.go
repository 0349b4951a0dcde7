package pipeline

import (
	"context"
	"time"

	"github.com/markdave123-py/Memora/internal/models"
)

// Task statuses. Pending and processing are the active set; the rest are
// terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Stages, in execution order. A failed task keeps the stage it died in.
const (
	StageInitialized         = "initialized"
	StageContentExtraction   = "content_extraction"
	StageTextProcessing      = "text_processing"
	StageAIAnalysis          = "ai_analysis"
	StageEmbeddingGeneration = "embedding_generation"
	StageDatabaseStorage     = "database_storage"
	StageCompleted           = "completed"
)

// Progress checkpoints per stage. Progress only ever moves forward.
const (
	progressExtraction = 0.1
	progressProcessing = 0.3
	progressAnalysis   = 0.6
	progressEmbedding  = 0.8
	progressStorage    = 0.9
	progressDone       = 1.0
)

// Source carries one raw ingestion payload into the pipeline.
type Source struct {
	Type        string // models.SourceTypeURL | SourceTypeText | SourceTypeUpload
	URL         string
	Text        string
	Title       string // caller-supplied title; wins over extracted ones
	FileName    string
	ContentType string
	Data        []byte // upload payload bytes
}

// Task tracks one document through the stages. All mutation happens under the
// pipeline's lock; callers only ever see TaskRecord copies built from it.
type Task struct {
	ID         string
	DocumentID string
	UserID     string
	Source     Source

	Status     string
	Stage      string
	Progress   float64
	RetryCount int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time

	cancel    context.CancelFunc
	cancelled bool
}

// record snapshots the task for the durable mirror and API responses.
// The caller must hold the pipeline lock.
func (t *Task) record(now time.Time) *models.TaskRecord {
	return &models.TaskRecord{
		TaskID:       t.ID,
		DocumentID:   t.DocumentID,
		UserID:       t.UserID,
		SourceURL:    t.Source.URL,
		Status:       t.Status,
		Stage:        t.Stage,
		Progress:     t.Progress,
		RetryCount:   t.RetryCount,
		ErrorMessage: t.Error,
		StartedAt:    t.StartedAt,
		FinishedAt:   t.FinishedAt,
		UpdatedAt:    now,
	}
}
