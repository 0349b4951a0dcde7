package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/search"
	"github.com/markdave123-py/Memora/internal/models"
)

const (
	// A session's rolling summary is refreshed every summaryEvery messages,
	// looking back over at most summaryWindow exchanges.
	summaryEvery  = 5
	summaryWindow = 10

	// maxContextDocuments caps how many cited documents a session remembers.
	maxContextDocuments = 10
)

const summarySystemPrompt = "You maintain a short running summary of a conversation. " +
	"Merge the previous summary with the new exchanges into at most three sentences."

// ConversationAnswerer is the slice of the search layer the chat service uses.
type ConversationAnswerer interface {
	Answer(ctx context.Context, userID, query string) (*search.Answer, error)
}

// ChatReply is one answered chat turn, including the session it landed in.
type ChatReply struct {
	SessionID   string                 `json:"session_id"`
	Response    string                 `json:"response"`
	Sources     []models.MessageSource `json:"sources"`
	Confidence  float64                `json:"confidence"`
	Suggestions []string               `json:"suggestions"`
}

// ChatService runs conversational search inside persistent sessions: it
// answers the query, records the exchange, tracks which documents the
// conversation has cited, and keeps a rolling summary.
type ChatService struct {
	db       core.DbClient
	answerer ConversationAnswerer
	llm      core.LLMProvider
}

func NewChatService(db core.DbClient, answerer ConversationAnswerer, llm core.LLMProvider) *ChatService {
	return &ChatService{db: db, answerer: answerer, llm: llm}
}

// Chat answers one query. An empty sessionID starts a new session; a known one
// continues it. Sessions belong to their creator only.
func (s *ChatService) Chat(ctx context.Context, userID, sessionID, query string) (*ChatReply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty message", core.ErrValidation)
	}

	sess, err := s.resolveSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	answer, err := s.answerer.Answer(ctx, userID, query)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &models.ConversationMessage{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		Query:      query,
		Response:   answer.Response,
		Sources:    answer.Sources,
		Confidence: answer.Confidence,
		CreatedAt:  now,
	}
	if err := s.db.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	sess.MessageCount++
	sess.LastActivity = now
	sess.ContextDocumentIDs = mergeContextDocs(sess.ContextDocumentIDs, answer.Sources)
	if sess.MessageCount%summaryEvery == 0 {
		s.refreshSummary(ctx, sess)
	}
	if err := s.db.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	return &ChatReply{
		SessionID:   sess.ID,
		Response:    answer.Response,
		Sources:     answer.Sources,
		Confidence:  answer.Confidence,
		Suggestions: answer.Suggestions,
	}, nil
}

func (s *ChatService) Sessions(ctx context.Context, userID string) ([]models.ConversationSession, error) {
	return s.db.ListSessionsByUser(ctx, userID)
}

func (s *ChatService) Messages(ctx context.Context, userID, sessionID string) ([]models.ConversationMessage, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.db.ListMessagesBySession(ctx, sessionID)
}

// DeleteSession removes the session and, via cascade, its messages.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.db.DeleteSession(ctx, sessionID)
}

// resolveSession loads the caller's session, or creates a fresh one when no
// ID was given.
func (s *ChatService) resolveSession(ctx context.Context, userID, sessionID string) (*models.ConversationSession, error) {
	if sessionID != "" {
		return s.ownedSession(ctx, userID, sessionID)
	}

	now := time.Now()
	sess := &models.ConversationSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.db.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *ChatService) ownedSession(ctx context.Context, userID, sessionID string) (*models.ConversationSession, error) {
	sess, err := s.db.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, sessionID)
	}
	return sess, nil
}

// refreshSummary folds the most recent exchanges into the session summary.
// Failures keep the previous summary; a chat turn never fails on this.
func (s *ChatService) refreshSummary(ctx context.Context, sess *models.ConversationSession) {
	msgs, err := s.db.ListMessagesBySession(ctx, sess.ID)
	if err != nil {
		log.Printf("chat: summary skipped, cannot load messages for %s: %v", sess.ID, err)
		return
	}
	if len(msgs) > summaryWindow {
		msgs = msgs[len(msgs)-summaryWindow:]
	}

	var b strings.Builder
	if sess.Summary != "" {
		fmt.Fprintf(&b, "Previous summary: %s\n\n", sess.Summary)
	}
	b.WriteString("Recent exchanges:\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", m.Query, m.Response)
	}

	summary, err := s.llm.Generate(ctx, summarySystemPrompt, b.String())
	if err != nil || strings.TrimSpace(summary) == "" {
		log.Printf("chat: summary generation failed for %s: %v", sess.ID, err)
		return
	}
	sess.Summary = strings.TrimSpace(summary)
}

// mergeContextDocs folds this turn's cited documents into the session's
// context set, newest first, capped at maxContextDocuments.
func mergeContextDocs(existing []string, sources []models.MessageSource) []string {
	seen := make(map[string]bool, len(existing)+len(sources))
	merged := make([]string, 0, maxContextDocuments)

	add := func(id string) {
		if id == "" || seen[id] || len(merged) >= maxContextDocuments {
			return
		}
		seen[id] = true
		merged = append(merged, id)
	}

	for _, src := range sources {
		add(src.DocumentID)
	}
	for _, id := range existing {
		add(id)
	}
	return merged
}
