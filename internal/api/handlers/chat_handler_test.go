package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/models"
	"github.com/markdave123-py/Memora/internal/services"
)

func TestChatStartsSession(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodPost, "/api/chat", token(t, "u1"), map[string]string{
		"message": "what do my documents say about goroutines?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply services.ChatReply
	decode(t, rec, &reply)
	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, "an answer", reply.Response)
	assert.InDelta(t, 0.8, reply.Confidence, 1e-9)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, "doc-1", reply.Sources[0].DocumentID)

	// The session and exchange are durable.
	e.store.Mu.Lock()
	sess := e.store.Sessions[reply.SessionID]
	msgs := e.store.Messages[reply.SessionID]
	e.store.Mu.Unlock()
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.MessageCount)
	require.Len(t, msgs, 1)
	assert.Equal(t, "an answer", msgs[0].Response)
}

func TestChatContinuesSession(t *testing.T) {
	e := newEnv()
	tok := token(t, "u1")

	first := e.do(t, http.MethodPost, "/api/chat", tok, map[string]string{"message": "first"})
	require.Equal(t, http.StatusOK, first.Code)
	var reply services.ChatReply
	decode(t, first, &reply)

	second := e.do(t, http.MethodPost, "/api/chat", tok, map[string]any{
		"message": "second", "session_id": reply.SessionID,
	})
	require.Equal(t, http.StatusOK, second.Code)
	var reply2 services.ChatReply
	decode(t, second, &reply2)
	assert.Equal(t, reply.SessionID, reply2.SessionID)

	e.store.Mu.Lock()
	count := e.store.Sessions[reply.SessionID].MessageCount
	e.store.Mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestChatValidation(t *testing.T) {
	e := newEnv()

	empty := e.do(t, http.MethodPost, "/api/chat", token(t, "u1"), map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	unknownSession := e.do(t, http.MethodPost, "/api/chat", token(t, "u1"), map[string]string{
		"message": "hi", "session_id": "ghost",
	})
	assert.Equal(t, http.StatusNotFound, unknownSession.Code)
}

func TestChatSessionListingAndMessages(t *testing.T) {
	e := newEnv()
	now := time.Now()
	e.seedSession(models.ConversationSession{ID: "s1", UserID: "u1", CreatedAt: now, LastActivity: now})
	e.store.Mu.Lock()
	e.store.Messages["s1"] = []models.ConversationMessage{
		{ID: "m1", SessionID: "s1", Query: "q", Response: "a", CreatedAt: now},
	}
	e.store.Mu.Unlock()

	list := e.do(t, http.MethodGet, "/api/chat/sessions", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, list.Code)
	var sessResp struct {
		Sessions []models.ConversationSession `json:"sessions"`
		Total    int                          `json:"total"`
	}
	decode(t, list, &sessResp)
	assert.Equal(t, 1, sessResp.Total)

	msgs := e.do(t, http.MethodGet, "/api/chat/sessions/s1/messages", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, msgs.Code)
	var msgResp struct {
		SessionID string                       `json:"session_id"`
		Messages  []models.ConversationMessage `json:"messages"`
	}
	decode(t, msgs, &msgResp)
	require.Len(t, msgResp.Messages, 1)
	assert.Equal(t, "q", msgResp.Messages[0].Query)

	// Foreign session reads as missing.
	foreign := e.do(t, http.MethodGet, "/api/chat/sessions/s1/messages", token(t, "u2"), nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
}

func TestChatDeleteSession(t *testing.T) {
	e := newEnv()
	now := time.Now()
	e.seedSession(models.ConversationSession{ID: "s1", UserID: "u1", CreatedAt: now, LastActivity: now})

	foreign := e.do(t, http.MethodDelete, "/api/chat/sessions/s1", token(t, "u2"), nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)

	rec := e.do(t, http.MethodDelete, "/api/chat/sessions/s1", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	gone := e.do(t, http.MethodGet, "/api/chat/sessions/s1/messages", token(t, "u1"), nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}
