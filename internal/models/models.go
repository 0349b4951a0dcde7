package models

import (
	"time"
)

// Document processing statuses. Transitions only move forward
// (pending -> processing -> completed|failed); a failed document may be
// reset to pending by an explicit re-ingestion.
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document source types.
const (
	SourceTypeURL    = "url"
	SourceTypeText   = "text"
	SourceTypeUpload = "upload"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Insight is a single AI-extracted takeaway from a document.
type Insight struct {
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"` // 0..1
	Category       string  `json:"category"`
}

// QuotableSnippet is a verbatim quote worth surfacing, with surrounding context.
type QuotableSnippet struct {
	Quote   string `json:"quote"`
	Context string `json:"context"`
}

// ContentMetadata carries the classifier's verdict about a document's text.
type ContentMetadata struct {
	ContentType        string   `json:"content_type"` // technical | academic | documentation | news | blog | article | general
	Quality            string   `json:"quality"`      // excellent | good | fair | poor
	Language           string   `json:"language"`
	WordCount          int      `json:"word_count"`
	SentenceCount      int      `json:"sentence_count"`
	ParagraphCount     int      `json:"paragraph_count"`
	ReadingTimeMinutes int      `json:"reading_time_minutes"`
	ComplexityScore    float64  `json:"complexity_score"` // 0..1
	Topics             []string `json:"topics"`
	KeyPhrases         []string `json:"key_phrases"`
}

// Document represents one ingested document: the normalized text, the AI
// annotations, and the classifier metadata. A document exclusively owns its
// chunks; deleting it cascades to them.
type Document struct {
	ID               string            `db:"id" json:"id"`
	UserID           string            `db:"user_id" json:"user_id"`
	SourceURL        string            `db:"source_url" json:"source_url,omitempty"`
	SourceType       string            `db:"source_type" json:"source_type"`
	FileName         string            `db:"file_name" json:"file_name,omitempty"`
	StorageURL       string            `db:"storage_url" json:"storage_url,omitempty"` // S3 archive of the raw payload
	Title            string            `db:"title" json:"title"`
	Summary          string            `db:"summary" json:"summary"`
	Content          string            `db:"content" json:"content,omitempty"` // normalized full text
	Tags             []string          `db:"tags" json:"tags"`
	Insights         []Insight         `db:"insights" json:"insights"`
	ActionItems      []string          `db:"action_items" json:"action_items"`
	QuotableSnippets []QuotableSnippet `db:"quotable_snippets" json:"quotable_snippets"`
	Status           string            `db:"status" json:"processing_status"`
	ErrorMessage     string            `db:"error_message" json:"error_message,omitempty"`
	Metadata         ContentMetadata   `db:"metadata" json:"metadata"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// DocumentChunk is one sentence-bounded slice of a document's normalized text.
// StartChar/EndChar index into Document.Content; EndChar-StartChar == len(Text).
type DocumentChunk struct {
	ID              string    `db:"id" json:"id"`
	DocumentID      string    `db:"document_id" json:"document_id"`
	Position        int       `db:"position" json:"position"` // 0-based, contiguous per document
	Text            string    `db:"text" json:"text"`
	StartChar       int       `db:"start_char" json:"start_char"`
	EndChar         int       `db:"end_char" json:"end_char"`
	WordCount       int       `db:"word_count" json:"word_count"`
	SentenceCount   int       `db:"sentence_count" json:"sentence_count"`
	TokenCount      int       `db:"token_count" json:"token_count"`
	QualityScore    float64   `db:"quality_score" json:"quality_score"` // 0..1
	Topics          []string  `db:"topics" json:"topics"`
	KeyPhrases      []string  `db:"key_phrases" json:"key_phrases"`
	Embedding       []float32 `db:"embedding" json:"-"` // pgvector column
	EmbeddingSource string    `db:"embedding_source" json:"embedding_source"` // provider name or "fallback"
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// TaskRecord is the durable mirror of a pipeline task, upserted on every
// stage transition so status polling survives a process restart.
type TaskRecord struct {
	TaskID       string    `db:"task_id" json:"task_id"`
	DocumentID   string    `db:"document_id" json:"document_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	SourceURL    string    `db:"source_url" json:"source_url,omitempty"`
	Status       string    `db:"status" json:"status"`
	Stage        string    `db:"stage" json:"stage"`
	Progress     float64   `db:"progress" json:"progress"`
	RetryCount   int       `db:"retry_count" json:"retry_count"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ConversationSession groups the chat exchanges of one user. Sessions own
// their messages (cascade delete) and remember which documents were cited.
type ConversationSession struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	LastActivity       time.Time `db:"last_activity" json:"last_activity"`
	MessageCount       int       `db:"message_count" json:"message_count"`
	ContextDocumentIDs []string  `db:"context_document_ids" json:"context_document_ids"`
	Summary            string    `db:"summary" json:"summary,omitempty"`
}

// MessageSource identifies one document cited in a conversational answer.
type MessageSource struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Relevance  float64 `json:"relevance"`
}

// ConversationMessage records one query/answer exchange within a session.
type ConversationMessage struct {
	ID         string          `db:"id" json:"id"`
	SessionID  string          `db:"session_id" json:"session_id"`
	Query      string          `db:"query" json:"query"`
	Response   string          `db:"response" json:"response"`
	Sources    []MessageSource `db:"sources" json:"sources"`
	Confidence float64         `db:"confidence" json:"confidence"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
