package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Memora/internal/config"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(pingCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// rowScanner lets the scan helpers accept both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// unmarshalJSON decodes a JSONB column, treating NULL/empty as the zero value.
func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Implementing the db interface for user

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email already registered", core.ErrDuplicateSubmission)
	}
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Implementing the db interface for Document

const documentColumns = `id, user_id, source_url, source_type, file_name, storage_url,
	title, summary, content, tags, insights, action_items, quotable_snippets,
	status, error_message, metadata, created_at, updated_at`

func scanDocument(s rowScanner) (*models.Document, error) {
	var (
		d                                     models.Document
		tags, insights, actions, quotes, meta []byte
	)
	if err := s.Scan(
		&d.ID, &d.UserID, &d.SourceURL, &d.SourceType, &d.FileName, &d.StorageURL,
		&d.Title, &d.Summary, &d.Content, &tags, &insights, &actions, &quotes,
		&d.Status, &d.ErrorMessage, &meta, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &d.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := unmarshalJSON(insights, &d.Insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	if err := unmarshalJSON(actions, &d.ActionItems); err != nil {
		return nil, fmt.Errorf("decode action_items: %w", err)
	}
	if err := unmarshalJSON(quotes, &d.QuotableSnippets); err != nil {
		return nil, fmt.Errorf("decode quotable_snippets: %w", err)
	}
	if err := unmarshalJSON(meta, &d.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &d, nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	tags, _ := json.Marshal(doc.Tags)
	meta, _ := json.Marshal(doc.Metadata)
	const q = `
		INSERT INTO documents
			(id, user_id, source_url, source_type, file_name, storage_url, title, status, tags, metadata, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()), COALESCE($12, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.SourceURL, doc.SourceType, doc.FileName, doc.StorageURL,
		doc.Title, doc.Status, tags, meta, doc.CreatedAt, doc.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: source url already submitted", core.ErrDuplicateSubmission)
	}
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *DatabaseClient) FindDocumentByURL(ctx context.Context, userID, sourceURL string) (*models.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 AND source_url = $2`
	doc, err := scanDocument(c.db.QueryRowContext(ctx, q, userID, sourceURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// qualityRank orders the classifier's ordinal quality labels; alphabetical
// order would put "fair" above "good".
const qualityRank = `CASE metadata->>'quality'
	WHEN 'excellent' THEN 4 WHEN 'good' THEN 3 WHEN 'fair' THEN 2 WHEN 'poor' THEN 1 ELSE 0 END`

func sortClause(sortBy string) string {
	switch sortBy {
	case "quality":
		return qualityRank + ` DESC, created_at DESC`
	case "reading_time":
		return `(metadata->>'reading_time_minutes')::int DESC NULLS LAST, created_at DESC`
	case "complexity":
		return `(metadata->>'complexity_score')::float DESC NULLS LAST, created_at DESC`
	case "word_count":
		return `(metadata->>'word_count')::int DESC NULLS LAST, created_at DESC`
	default: // date
		return `created_at DESC`
	}
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string, filter core.DocumentFilter) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1`
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ContentType != "" {
		args = append(args, filter.ContentType)
		q += fmt.Sprintf(" AND metadata->>'content_type' = $%d", len(args))
	}
	if filter.Quality != "" {
		args = append(args, filter.Quality)
		q += fmt.Sprintf(" AND metadata->>'quality' = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		q += fmt.Sprintf(" AND tags ? $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		q += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	q += ` ORDER BY ` + sortClause(filter.SortBy)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error {
	const q = `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status, errMsg)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}

func (c *DatabaseClient) UpdateDocumentContent(ctx context.Context, id, title, content string) error {
	const q = `
		UPDATE documents
		SET title = $2, content = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, title, content)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}

func (c *DatabaseClient) UpdateDocumentAnalysis(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	tags, _ := json.Marshal(doc.Tags)
	insights, _ := json.Marshal(doc.Insights)
	actions, _ := json.Marshal(doc.ActionItems)
	quotes, _ := json.Marshal(doc.QuotableSnippets)
	meta, _ := json.Marshal(doc.Metadata)

	const q = `
		UPDATE documents
		SET title = $2, summary = $3, tags = $4, insights = $5, action_items = $6,
		    quotable_snippets = $7, metadata = $8, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Summary, tags, insights, actions, quotes, meta)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, doc.ID)
	}
	return nil
}

// ResetDocument returns a failed document to pending and drops its chunks so a
// re-ingestion starts clean.
func (c *DatabaseClient) ResetDocument(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const reset = `
		UPDATE documents
		SET status = 'pending', error_message = '', updated_at = now()
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, reset, id)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}

// Implementing the db interface for Document Chunks

const chunkColumns = `id, document_id, position, text, start_char, end_char,
	word_count, sentence_count, token_count, quality_score, topics, key_phrases,
	embedding, embedding_source, created_at`

func scanChunk(s rowScanner) (*models.DocumentChunk, error) {
	var (
		ch                models.DocumentChunk
		topics, keyPhrase []byte
		emb               pgvector.Vector
	)
	if err := s.Scan(
		&ch.ID, &ch.DocumentID, &ch.Position, &ch.Text, &ch.StartChar, &ch.EndChar,
		&ch.WordCount, &ch.SentenceCount, &ch.TokenCount, &ch.QualityScore,
		&topics, &keyPhrase, &emb, &ch.EmbeddingSource, &ch.CreatedAt,
	); err != nil {
		return nil, err
	}
	ch.Embedding = emb.Slice()
	if err := unmarshalJSON(topics, &ch.Topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if err := unmarshalJSON(keyPhrase, &ch.KeyPhrases); err != nil {
		return nil, fmt.Errorf("decode key_phrases: %w", err)
	}
	return &ch, nil
}

// ReplaceDocumentChunks swaps the document's chunk set inside one transaction
// so a retried storage stage never leaves old and new chunks mixed.
func (c *DatabaseClient) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, position, text, start_char, end_char, word_count,
			 sentence_count, token_count, quality_score, topics, key_phrases,
			 embedding, embedding_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		topics, _ := json.Marshal(ch.Topics)
		keyPhrases, _ := json.Marshal(ch.KeyPhrases)
		vec := pgvector.NewVector(ch.Embedding)

		if _, err := stmt.ExecContext(ctx,
			ch.ID, documentID, ch.Position, ch.Text, ch.StartChar, ch.EndChar,
			ch.WordCount, ch.SentenceCount, ch.TokenCount, ch.QualityScore,
			topics, keyPhrases, vec, ch.EmbeddingSource, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT ` + chunkColumns + `
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// SearchChunks finds the most similar chunks across the user's completed
// documents. Similarity is 1 - cosine distance; rows under minSimilarity are
// filtered in SQL so the ivfflat index does the heavy lifting.
func (c *DatabaseClient) SearchChunks(ctx context.Context, userID string, queryVec []float32, docIDs []string, minSimilarity float64, limit int) ([]core.ChunkMatch, error) {
	vec := pgvector.NewVector(queryVec)

	q := `
		SELECT dc.id, dc.document_id, dc.position, dc.text, dc.start_char, dc.end_char,
		       dc.word_count, dc.sentence_count, dc.token_count, dc.quality_score,
		       dc.topics, dc.key_phrases, dc.embedding, dc.embedding_source, dc.created_at,
		       1 - (dc.embedding <=> $2) AS similarity
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE d.user_id = $1
		  AND d.status = 'completed'
		  AND dc.embedding IS NOT NULL
		  AND 1 - (dc.embedding <=> $2) >= $3
	`
	args := []any{userID, vec, minSimilarity}

	if len(docIDs) > 0 {
		args = append(args, docIDs)
		q += fmt.Sprintf(" AND dc.document_id = ANY($%d)", len(args))
	}

	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY dc.embedding <=> $2 LIMIT $%d", len(args))

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ChunkMatch
	for rows.Next() {
		var (
			ch                models.DocumentChunk
			topics, keyPhrase []byte
			emb               pgvector.Vector
			similarity        float64
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.Position, &ch.Text, &ch.StartChar, &ch.EndChar,
			&ch.WordCount, &ch.SentenceCount, &ch.TokenCount, &ch.QualityScore,
			&topics, &keyPhrase, &emb, &ch.EmbeddingSource, &ch.CreatedAt,
			&similarity,
		); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		if err := unmarshalJSON(topics, &ch.Topics); err != nil {
			return nil, fmt.Errorf("decode topics: %w", err)
		}
		if err := unmarshalJSON(keyPhrase, &ch.KeyPhrases); err != nil {
			return nil, fmt.Errorf("decode key_phrases: %w", err)
		}
		out = append(out, core.ChunkMatch{Chunk: ch, Similarity: similarity})
	}
	return out, rows.Err()
}

// Implementing the db interface for processing tasks

func (c *DatabaseClient) UpsertTaskRecord(ctx context.Context, rec *models.TaskRecord) error {
	if rec == nil {
		return errors.New("nil task record")
	}
	const q = `
		INSERT INTO processing_tasks
			(task_id, document_id, user_id, source_url, status, stage, progress,
			 retry_count, error_message, started_at, finished_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (task_id) DO UPDATE SET
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			progress = EXCLUDED.progress,
			retry_count = EXCLUDED.retry_count,
			error_message = EXCLUDED.error_message,
			finished_at = EXCLUDED.finished_at,
			updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q,
		rec.TaskID, rec.DocumentID, rec.UserID, rec.SourceURL, rec.Status, rec.Stage,
		rec.Progress, rec.RetryCount, rec.ErrorMessage, rec.StartedAt, rec.FinishedAt)
	return err
}

func (c *DatabaseClient) GetTaskRecord(ctx context.Context, taskID string) (*models.TaskRecord, error) {
	const q = `
		SELECT task_id, document_id, user_id, source_url, status, stage, progress,
		       retry_count, error_message, started_at, finished_at, updated_at
		FROM processing_tasks WHERE task_id = $1
	`
	var rec models.TaskRecord
	err := c.db.QueryRowContext(ctx, q, taskID).Scan(
		&rec.TaskID, &rec.DocumentID, &rec.UserID, &rec.SourceURL, &rec.Status, &rec.Stage,
		&rec.Progress, &rec.RetryCount, &rec.ErrorMessage, &rec.StartedAt, &rec.FinishedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Implementing the db interface for conversation sessions

func (c *DatabaseClient) CreateSession(ctx context.Context, s *models.ConversationSession) error {
	if s == nil {
		return errors.New("nil session")
	}
	ctxDocs, _ := json.Marshal(s.ContextDocumentIDs)
	const q = `
		INSERT INTO conversation_sessions
			(id, user_id, created_at, last_activity, message_count, context_document_ids, summary)
		VALUES ($1, $2, COALESCE($3, now()), COALESCE($4, now()), $5, $6, $7)
	`
	_, err := c.db.ExecContext(ctx, q,
		s.ID, s.UserID, s.CreatedAt, s.LastActivity, s.MessageCount, ctxDocs, s.Summary)
	return err
}

func scanSession(s rowScanner) (*models.ConversationSession, error) {
	var (
		sess    models.ConversationSession
		ctxDocs []byte
	)
	if err := s.Scan(
		&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.LastActivity,
		&sess.MessageCount, &ctxDocs, &sess.Summary,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(ctxDocs, &sess.ContextDocumentIDs); err != nil {
		return nil, fmt.Errorf("decode context_document_ids: %w", err)
	}
	return &sess, nil
}

func (c *DatabaseClient) GetSession(ctx context.Context, id string) (*models.ConversationSession, error) {
	const q = `
		SELECT id, user_id, created_at, last_activity, message_count, context_document_ids, summary
		FROM conversation_sessions WHERE id = $1
	`
	sess, err := scanSession(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *DatabaseClient) UpdateSession(ctx context.Context, s *models.ConversationSession) error {
	if s == nil {
		return errors.New("nil session")
	}
	ctxDocs, _ := json.Marshal(s.ContextDocumentIDs)
	const q = `
		UPDATE conversation_sessions
		SET last_activity = $2, message_count = $3, context_document_ids = $4, summary = $5
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, s.ID, s.LastActivity, s.MessageCount, ctxDocs, s.Summary)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: session %s", core.ErrNotFound, s.ID)
	}
	return nil
}

func (c *DatabaseClient) ListSessionsByUser(ctx context.Context, userID string) ([]models.ConversationSession, error) {
	const q = `
		SELECT id, user_id, created_at, last_activity, message_count, context_document_ids, summary
		FROM conversation_sessions
		WHERE user_id = $1
		ORDER BY last_activity DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConversationSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session; its messages go with it via FK cascade.
func (c *DatabaseClient) DeleteSession(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM conversation_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: session %s", core.ErrNotFound, id)
	}
	return nil
}

// Implementing the db interface for conversation messages

func (c *DatabaseClient) InsertMessage(ctx context.Context, m *models.ConversationMessage) error {
	if m == nil {
		return errors.New("nil message")
	}
	sources, _ := json.Marshal(m.Sources)
	const q = `
		INSERT INTO conversation_messages (id, session_id, query, response, sources, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		m.ID, m.SessionID, m.Query, m.Response, sources, m.Confidence, m.CreatedAt)
	return err
}

func (c *DatabaseClient) ListMessagesBySession(ctx context.Context, sessionID string) ([]models.ConversationMessage, error) {
	const q = `
		SELECT id, session_id, query, response, sources, confidence, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConversationMessage
	for rows.Next() {
		var (
			m       models.ConversationMessage
			sources []byte
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Query, &m.Response, &sources, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(sources, &m.Sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
