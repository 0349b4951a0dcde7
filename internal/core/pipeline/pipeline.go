package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/annotate"
	"github.com/markdave123-py/Memora/internal/core/textproc"
	"github.com/markdave123-py/Memora/internal/models"
)

// Embedder is what the embedding stage needs from the embedding service.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, []string, error)
}

// Annotator is what the analysis stage needs from the AI annotator.
type Annotator interface {
	Annotate(ctx context.Context, content string, analysis textproc.ContentAnalysis) annotate.Result
}

// Config tunes the pipeline.
//
// MaxRetries:       retries per stage after the initial attempt.
// RetryBaseDelay:   first retry delay; doubles per attempt (base·2^n).
// StageTimeout:     context deadline applied to each stage attempt.
// MaxContentLength: extracted text beyond this many bytes is truncated.
type Config struct {
	MaxRetries       int
	RetryBaseDelay   time.Duration
	StageTimeout     time.Duration
	MaxContentLength int
}

// Pipeline drives documents through extraction, processing, analysis,
// embedding and storage on a fixed pool of workers fed by a bounded queue.
type Pipeline struct {
	db        core.DbClient
	fetcher   core.SourceFetcher
	extractor core.FileExtractor
	analyzer  *textproc.Classifier
	chunker   *textproc.Chunker
	annotator Annotator
	embedder  Embedder
	cfg       Config

	jobs chan *Task

	mu     sync.RWMutex
	active map[string]*Task  // taskID -> task, pending or processing
	byDoc  map[string]string // documentID -> active taskID

	stats struct {
		processed int
		succeeded int
		failed    int
		cancelled int
		duration  time.Duration
	}

	// Replaced in tests to avoid real waiting and to pin timestamps.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New constructs the pipeline with a bounded job queue (64).
func New(db core.DbClient, fetcher core.SourceFetcher, extractor core.FileExtractor, analyzer *textproc.Classifier, chunker *textproc.Chunker, annotator Annotator, embedder Embedder, cfg Config) *Pipeline {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 5 * time.Minute
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 1_000_000
	}
	return &Pipeline{
		db:        db,
		fetcher:   fetcher,
		extractor: extractor,
		analyzer:  analyzer,
		chunker:   chunker,
		annotator: annotator,
		embedder:  embedder,
		cfg:       cfg,
		jobs:      make(chan *Task, 64),
		active:    make(map[string]*Task),
		byDoc:     make(map[string]string),
		sleep:     waitFor,
		now:       time.Now,
	}
}

// Start launches numWorkers goroutines reading from the job queue. Workers
// exit when ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("pipeline: worker %d shutting down", w)
					return
				case t := <-p.jobs:
					log.Printf("pipeline: worker %d picked task %s (document %s)", w, t.ID, t.DocumentID)
					p.process(ctx, t)
				}
			}
		}(w)
	}
}

// Submit registers a new task for the document and enqueues it. If the queue
// is full the call blocks until space frees up or ctx is done. Submitting a
// document that already has an active task returns that task instead.
func (p *Pipeline) Submit(ctx context.Context, userID, documentID string, src Source) (*models.TaskRecord, error) {
	t := &Task{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     userID,
		Source:     src,
		Status:     StatusPending,
		Stage:      StageInitialized,
		StartedAt:  p.now(),
	}

	p.mu.Lock()
	if existingID, ok := p.byDoc[documentID]; ok {
		rec := p.active[existingID].record(p.now())
		p.mu.Unlock()
		return rec, nil
	}
	p.active[t.ID] = t
	p.byDoc[documentID] = t.ID
	rec := t.record(p.now())
	p.mu.Unlock()

	p.upsertMirror(rec)

	select {
	case p.jobs <- t:
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.active, t.ID)
		if p.byDoc[documentID] == t.ID {
			delete(p.byDoc, documentID)
		}
		p.mu.Unlock()
		return nil, ctx.Err()
	}
	return rec, nil
}

// Cancel stops an active task. Queued tasks are finalized immediately;
// running tasks have their context cancelled and finalize from the worker.
func (p *Pipeline) Cancel(taskID string) error {
	p.mu.Lock()
	t, ok := p.active[taskID]
	if !ok {
		p.mu.Unlock()
		return core.ErrTaskNotActive
	}
	t.cancelled = true
	cancel := t.cancel
	queued := t.Status == StatusPending
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if queued {
		p.finish(t, StatusCancelled, "cancelled before processing started")
		p.updateDocumentStatus(t.DocumentID, models.DocStatusFailed, "processing cancelled")
	}
	return nil
}

// Status reports a task: the in-memory registry first, then the durable
// mirror for terminal or pre-restart tasks. Unknown IDs yield (nil, nil).
func (p *Pipeline) Status(ctx context.Context, taskID string) (*models.TaskRecord, error) {
	p.mu.RLock()
	if t, ok := p.active[taskID]; ok {
		rec := t.record(p.now())
		p.mu.RUnlock()
		return rec, nil
	}
	p.mu.RUnlock()
	return p.db.GetTaskRecord(ctx, taskID)
}

// ActiveTaskForDocument reports the active task working this document, if any.
// Backs the duplicate-submission short-circuit.
func (p *Pipeline) ActiveTaskForDocument(documentID string) (*models.TaskRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	taskID, ok := p.byDoc[documentID]
	if !ok {
		return nil, false
	}
	return p.active[taskID].record(p.now()), true
}

// transition moves the task to a stage checkpoint and mirrors it. Progress
// is monotonic: a lower checkpoint never rewinds it.
func (p *Pipeline) transition(t *Task, stage string, progress float64) {
	p.mu.Lock()
	t.Stage = stage
	if progress > t.Progress {
		t.Progress = progress
	}
	rec := t.record(p.now())
	p.mu.Unlock()
	p.upsertMirror(rec)
}

func (p *Pipeline) bumpRetry(t *Task) {
	p.mu.Lock()
	t.RetryCount++
	rec := t.record(p.now())
	p.mu.Unlock()
	p.upsertMirror(rec)
}

// finish moves the task to a terminal status, updates counters, drops it
// from the active registry and mirrors the final record.
func (p *Pipeline) finish(t *Task, status, errMsg string) {
	p.mu.Lock()
	t.Status = status
	t.Error = errMsg
	if status == StatusCompleted {
		t.Stage = StageCompleted
		t.Progress = progressDone
	}
	finished := p.now()
	t.FinishedAt = &finished

	elapsed := finished.Sub(t.StartedAt)
	switch status {
	case StatusCompleted:
		p.stats.processed++
		p.stats.succeeded++
		p.stats.duration += elapsed
	case StatusFailed:
		p.stats.processed++
		p.stats.failed++
		p.stats.duration += elapsed
	case StatusCancelled:
		p.stats.cancelled++
	}

	delete(p.active, t.ID)
	if p.byDoc[t.DocumentID] == t.ID {
		delete(p.byDoc, t.DocumentID)
	}
	rec := t.record(finished)
	p.mu.Unlock()
	p.upsertMirror(rec)
}

func (p *Pipeline) wasCancelled(t *Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return t.cancelled
}

// Bookkeeping writes run on fresh contexts so a cancelled task can still
// record its terminal state.

func (p *Pipeline) upsertMirror(rec *models.TaskRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.db.UpsertTaskRecord(ctx, rec); err != nil {
		log.Printf("pipeline: task %s mirror update failed: %v", rec.TaskID, err)
	}
}

func (p *Pipeline) updateDocumentStatus(documentID, status, errMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.db.UpdateDocumentStatus(ctx, documentID, status, errMsg); err != nil {
		log.Printf("pipeline: document %s status update failed: %v", documentID, err)
	}
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
