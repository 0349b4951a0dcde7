// Package coretest provides in-memory fakes of the core infrastructure
// interfaces for tests.
package coretest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

// Store is an in-memory core.DbClient. Error fields, when set, make the
// matching method fail. All state is exported so tests can seed and inspect
// it directly; use the lock when reading concurrently with a live pipeline.
type Store struct {
	Mu sync.Mutex

	Users     map[string]*models.User // keyed by email
	Documents map[string]*models.Document
	Chunks    map[string][]models.DocumentChunk // keyed by document id
	Tasks     map[string]*models.TaskRecord
	TaskLog   []models.TaskRecord // every mirror upsert, in order
	StatusLog []string            // "docID status" history
	Sessions  map[string]*models.ConversationSession
	Messages  map[string][]models.ConversationMessage

	CreateUserErr     error
	CreateDocumentErr error
	UpdateContentErr  error
	UpdateAnalysisErr error
	UpdateStatusErr   error
	ReplaceChunksErr  error
	UpsertTaskErr     error
	SearchErr         error
	SearchResults     []core.ChunkMatch
}

var _ core.DbClient = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		Users:     make(map[string]*models.User),
		Documents: make(map[string]*models.Document),
		Chunks:    make(map[string][]models.DocumentChunk),
		Tasks:     make(map[string]*models.TaskRecord),
		Sessions:  make(map[string]*models.ConversationSession),
		Messages:  make(map[string][]models.ConversationMessage),
	}
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	if s.CreateUserErr != nil {
		return s.CreateUserErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	cp := *user
	s.Users[user.Email] = &cp
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	u, ok := s.Users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateDocument(_ context.Context, doc *models.Document) error {
	if s.CreateDocumentErr != nil {
		return s.CreateDocumentErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	cp := *doc
	s.Documents[doc.ID] = &cp
	return nil
}

func (s *Store) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	doc, ok := s.Documents[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *Store) FindDocumentByURL(_ context.Context, userID, sourceURL string) (*models.Document, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	for _, doc := range s.Documents {
		if doc.UserID == userID && doc.SourceURL == sourceURL {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListDocumentsByUser(_ context.Context, userID string, filter core.DocumentFilter) ([]models.Document, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	var out []models.Document
	for _, doc := range s.Documents {
		if doc.UserID != userID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.ContentType != "" && doc.Metadata.ContentType != filter.ContentType {
			continue
		}
		if filter.Quality != "" && doc.Metadata.Quality != filter.Quality {
			continue
		}
		if filter.Tag != "" && !hasTag(doc.Tags, filter.Tag) {
			continue
		}
		if !filter.From.IsZero() && doc.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && doc.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func (s *Store) UpdateDocumentStatus(_ context.Context, id, status, errMsg string) error {
	if s.UpdateStatusErr != nil {
		return s.UpdateStatusErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.StatusLog = append(s.StatusLog, id+" "+status)
	if doc, ok := s.Documents[id]; ok {
		doc.Status = status
		doc.ErrorMessage = errMsg
	}
	return nil
}

func (s *Store) UpdateDocumentContent(_ context.Context, id, title, content string) error {
	if s.UpdateContentErr != nil {
		return s.UpdateContentErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if doc, ok := s.Documents[id]; ok {
		doc.Title = title
		doc.Content = content
	}
	return nil
}

func (s *Store) UpdateDocumentAnalysis(_ context.Context, update *models.Document) error {
	if s.UpdateAnalysisErr != nil {
		return s.UpdateAnalysisErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if doc, ok := s.Documents[update.ID]; ok {
		doc.Summary = update.Summary
		doc.Tags = update.Tags
		doc.Insights = update.Insights
		doc.ActionItems = update.ActionItems
		doc.QuotableSnippets = update.QuotableSnippets
		doc.Metadata = update.Metadata
	}
	return nil
}

func (s *Store) ResetDocument(_ context.Context, id string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if doc, ok := s.Documents[id]; ok {
		doc.Status = models.DocStatusPending
		doc.ErrorMessage = ""
	}
	delete(s.Chunks, id)
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	delete(s.Documents, id)
	delete(s.Chunks, id)
	return nil
}

func (s *Store) ReplaceDocumentChunks(_ context.Context, documentID string, chunks []models.DocumentChunk) error {
	if s.ReplaceChunksErr != nil {
		return s.ReplaceChunksErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Chunks[documentID] = append([]models.DocumentChunk(nil), chunks...)
	return nil
}

func (s *Store) GetChunksByDocument(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return append([]models.DocumentChunk(nil), s.Chunks[documentID]...), nil
}

func (s *Store) SearchChunks(_ context.Context, _ string, _ []float32, _ []string, minSimilarity float64, limit int) ([]core.ChunkMatch, error) {
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	var out []core.ChunkMatch
	for _, m := range s.SearchResults {
		if m.Similarity >= minSimilarity {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertTaskRecord(_ context.Context, rec *models.TaskRecord) error {
	if s.UpsertTaskErr != nil {
		return s.UpsertTaskErr
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	cp := *rec
	s.Tasks[rec.TaskID] = &cp
	s.TaskLog = append(s.TaskLog, cp)
	return nil
}

func (s *Store) GetTaskRecord(_ context.Context, taskID string) (*models.TaskRecord, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	rec, ok := s.Tasks[taskID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) CreateSession(_ context.Context, sess *models.ConversationSession) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	cp := *sess
	s.Sessions[sess.ID] = &cp
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*models.ConversationSession, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	sess, ok := s.Sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) UpdateSession(_ context.Context, sess *models.ConversationSession) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	cp := *sess
	s.Sessions[sess.ID] = &cp
	return nil
}

func (s *Store) ListSessionsByUser(_ context.Context, userID string) ([]models.ConversationSession, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	var out []models.ConversationSession
	for _, sess := range s.Sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	delete(s.Sessions, id)
	delete(s.Messages, id)
	return nil
}

func (s *Store) InsertMessage(_ context.Context, m *models.ConversationMessage) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Messages[m.SessionID] = append(s.Messages[m.SessionID], *m)
	return nil
}

func (s *Store) ListMessagesBySession(_ context.Context, sessionID string) ([]models.ConversationMessage, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return append([]models.ConversationMessage(nil), s.Messages[sessionID]...), nil
}

func (s *Store) Close() error { return nil }

// TaskHistory returns the mirror upserts recorded for one task, in order.
func (s *Store) TaskHistory(taskID string) []models.TaskRecord {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	var out []models.TaskRecord
	for _, rec := range s.TaskLog {
		if rec.TaskID == taskID {
			out = append(out, rec)
		}
	}
	return out
}
