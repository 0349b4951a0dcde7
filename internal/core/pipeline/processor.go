package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/annotate"
	"github.com/markdave123-py/Memora/internal/core/textproc"
	"github.com/markdave123-py/Memora/internal/models"
)

// Extraction under this many characters is treated as a failed fetch rather
// than a usable document.
const minContentChars = 50

// process runs every stage for one task. Stage outputs flow through locals;
// nothing is written to the document until the storage stage, so a failure
// never leaves a half-updated document behind.
func (p *Pipeline) process(ctx context.Context, t *Task) {
	p.mu.Lock()
	if t.cancelled {
		p.mu.Unlock()
		return
	}
	tctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.Status = StatusProcessing
	rec := t.record(p.now())
	p.mu.Unlock()
	defer cancel()

	p.upsertMirror(rec)
	p.updateDocumentStatus(t.DocumentID, models.DocStatusProcessing, "")

	var raw, pageTitle string
	err := p.runStage(tctx, t, StageContentExtraction, progressExtraction, func(sctx context.Context) error {
		var stageErr error
		raw, pageTitle, stageErr = p.extractContent(sctx, t.Source)
		return stageErr
	})
	if err != nil {
		p.abort(t, err)
		return
	}

	var (
		content  string
		analysis textproc.ContentAnalysis
		chunks   []textproc.Chunk
	)
	err = p.runStage(tctx, t, StageTextProcessing, progressProcessing, func(context.Context) error {
		content = textproc.Normalize(raw)
		analysis = p.analyzer.Analyze(content, t.Source.URL)
		chunks = p.chunker.Chunk(content)
		if len(chunks) == 0 {
			return fmt.Errorf("%w: no chunks produced from %d chars", core.ErrContentProcessing, len(content))
		}
		return nil
	})
	if err != nil {
		p.abort(t, err)
		return
	}

	var annotations annotate.Result
	err = p.runStage(tctx, t, StageAIAnalysis, progressAnalysis, func(sctx context.Context) error {
		annotations = p.annotator.Annotate(sctx, content, analysis)
		return nil
	})
	if err != nil {
		p.abort(t, err)
		return
	}

	var (
		vectors [][]float32
		sources []string
	)
	err = p.runStage(tctx, t, StageEmbeddingGeneration, progressEmbedding, func(sctx context.Context) error {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		vecs, srcs, embErr := p.embedder.EmbedTexts(sctx, texts)
		if embErr != nil {
			return fmt.Errorf("%w: %v", core.ErrEmbeddingGeneration, embErr)
		}
		if len(vecs) != len(chunks) {
			return fmt.Errorf("%w: %d vectors for %d chunks", core.ErrEmbeddingGeneration, len(vecs), len(chunks))
		}
		vectors, sources = vecs, srcs
		return nil
	})
	if err != nil {
		p.abort(t, err)
		return
	}

	err = p.runStage(tctx, t, StageDatabaseStorage, progressStorage, func(sctx context.Context) error {
		doc := p.buildDocument(t, pageTitle, analysis, annotations)
		if err := p.db.UpdateDocumentContent(sctx, t.DocumentID, doc.Title, content); err != nil {
			return err
		}
		if err := p.db.UpdateDocumentAnalysis(sctx, doc); err != nil {
			return err
		}
		rows := p.buildChunkRows(t.DocumentID, chunks, vectors, sources)
		if err := p.db.ReplaceDocumentChunks(sctx, t.DocumentID, rows); err != nil {
			return err
		}
		return p.db.UpdateDocumentStatus(sctx, t.DocumentID, models.DocStatusCompleted, "")
	})
	if err != nil {
		p.abort(t, err)
		return
	}

	p.finish(t, StatusCompleted, "")
	log.Printf("pipeline: task %s completed (document %s, %d chunks)", t.ID, t.DocumentID, len(chunks))
}

// runStage moves the task to the stage checkpoint, then runs fn with a
// per-attempt timeout and bounded exponential retry. Deterministic failures
// skip the retries. Cancellation surfaces as the task context's error.
func (p *Pipeline) runStage(ctx context.Context, t *Task, stage string, progress float64, fn func(context.Context) error) error {
	p.transition(t, stage, progress)

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.RetryBaseDelay * (1 << (attempt - 1))
			log.Printf("pipeline: task %s retrying stage %s in %s (retry %d/%d)", t.ID, stage, delay, attempt, p.cfg.MaxRetries)
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
			p.bumpRetry(t)
		}

		sctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
		err := fn(sctx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		if isPermanent(err) {
			break
		}
		log.Printf("pipeline: task %s stage %s attempt %d failed: %v", t.ID, stage, attempt+1, err)
	}
	return lastErr
}

// isPermanent reports deterministic failures re-running cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, core.ErrValidation) ||
		errors.Is(err, core.ErrContentProcessing) ||
		errors.Is(err, core.ErrDimensionMismatch)
}

func (p *Pipeline) abort(t *Task, err error) {
	if errors.Is(err, context.Canceled) || p.wasCancelled(t) {
		log.Printf("pipeline: task %s cancelled at stage %s", t.ID, t.Stage)
		p.finish(t, StatusCancelled, "cancelled")
		p.updateDocumentStatus(t.DocumentID, models.DocStatusFailed, "processing cancelled")
		return
	}
	log.Printf("pipeline: task %s failed at stage %s: %v", t.ID, t.Stage, err)
	p.finish(t, StatusFailed, err.Error())
	p.updateDocumentStatus(t.DocumentID, models.DocStatusFailed, err.Error())
}

// extractContent resolves the source into raw text plus any page title the
// fetcher discovered.
func (p *Pipeline) extractContent(ctx context.Context, src Source) (raw, pageTitle string, err error) {
	switch src.Type {
	case models.SourceTypeURL:
		fetched, fetchErr := p.fetcher.Fetch(ctx, src.URL)
		if fetchErr != nil {
			return "", "", fmt.Errorf("fetch %s: %w", src.URL, fetchErr)
		}
		raw, pageTitle = fetched.Text, fetched.Title
	case models.SourceTypeText:
		raw = src.Text
	case models.SourceTypeUpload:
		text, extractErr := p.extractor.Extract(ctx, src.Data, src.ContentType)
		if extractErr != nil {
			return "", "", fmt.Errorf("extract %s: %w", src.FileName, extractErr)
		}
		raw = text
	default:
		return "", "", fmt.Errorf("%w: unknown source type %q", core.ErrValidation, src.Type)
	}

	if len(raw) > p.cfg.MaxContentLength {
		log.Printf("pipeline: truncating content from %d to %d bytes", len(raw), p.cfg.MaxContentLength)
		raw = truncateAtRune(raw, p.cfg.MaxContentLength)
	}
	if len(strings.TrimSpace(raw)) < minContentChars {
		return "", "", fmt.Errorf("%w: Insufficient content extracted", core.ErrContentProcessing)
	}
	return raw, pageTitle, nil
}

// truncateAtRune cuts s to at most max bytes without splitting a rune.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (p *Pipeline) buildDocument(t *Task, pageTitle string, analysis textproc.ContentAnalysis, res annotate.Result) *models.Document {
	return &models.Document{
		ID:               t.DocumentID,
		UserID:           t.UserID,
		Title:            pickTitle(t.Source.Title, res.Title, pageTitle),
		Summary:          res.Summary.Value,
		Tags:             res.Tags.Values,
		Insights:         res.Insights.Values,
		ActionItems:      res.ActionItems.Values,
		QuotableSnippets: res.Snippets.Values,
		Metadata: models.ContentMetadata{
			ContentType:        analysis.ContentType,
			Quality:            analysis.Quality,
			Language:           analysis.Language,
			WordCount:          analysis.WordCount,
			SentenceCount:      analysis.SentenceCount,
			ParagraphCount:     analysis.ParagraphCount,
			ReadingTimeMinutes: analysis.ReadingTimeMinutes,
			ComplexityScore:    analysis.ComplexityScore,
			Topics:             analysis.Topics,
			KeyPhrases:         analysis.KeyPhrases,
		},
	}
}

// pickTitle prefers the caller's title, then the AI title, then whatever the
// fetcher scraped from the page.
func pickTitle(userTitle string, ai annotate.TextField, pageTitle string) string {
	if t := strings.TrimSpace(userTitle); t != "" {
		return t
	}
	if !ai.Fallback && strings.TrimSpace(ai.Value) != "" {
		return strings.TrimSpace(ai.Value)
	}
	if t := strings.TrimSpace(pageTitle); t != "" {
		return t
	}
	return annotate.FallbackTitle
}

func (p *Pipeline) buildChunkRows(documentID string, chunks []textproc.Chunk, vectors [][]float32, sources []string) []models.DocumentChunk {
	now := p.now()
	rows := make([]models.DocumentChunk, len(chunks))
	for i, ch := range chunks {
		rows[i] = models.DocumentChunk{
			ID:              uuid.NewString(),
			DocumentID:      documentID,
			Position:        ch.Index,
			Text:            ch.Text,
			StartChar:       ch.StartChar,
			EndChar:         ch.EndChar,
			WordCount:       ch.WordCount,
			SentenceCount:   ch.SentenceCount,
			TokenCount:      ch.TokenCount,
			QualityScore:    ch.QualityScore,
			Topics:          ch.Topics,
			KeyPhrases:      ch.KeyPhrases,
			Embedding:       vectors[i],
			EmbeddingSource: sources[i],
			CreatedAt:       now,
		}
	}
	return rows
}
