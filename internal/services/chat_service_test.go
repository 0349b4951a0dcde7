package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/coretest"
	"github.com/markdave123-py/Memora/internal/core/search"
	"github.com/markdave123-py/Memora/internal/models"
)

type fakeAnswerer struct {
	answer *search.Answer
	err    error
}

func (f *fakeAnswerer) Answer(context.Context, string, string) (*search.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func defaultAnswer() *search.Answer {
	return &search.Answer{
		Response:   "Grounded answer.",
		Sources:    []models.MessageSource{{DocumentID: "doc1", Title: "Doc One", Relevance: 0.9}},
		Confidence: 0.8,
	}
}

func newChatFixture(answer *search.Answer) (*ChatService, *coretest.Store, *fakeLLM) {
	store := coretest.NewStore()
	llm := &fakeLLM{response: "Conversation summary."}
	svc := NewChatService(store, &fakeAnswerer{answer: answer}, llm)
	return svc, store, llm
}

func TestChatCreatesSessionAndRecordsExchange(t *testing.T) {
	svc, store, _ := newChatFixture(defaultAnswer())

	reply, err := svc.Chat(context.Background(), "u1", "", "what did I read about Go?")
	require.NoError(t, err)
	require.NotEmpty(t, reply.SessionID)
	assert.Equal(t, "Grounded answer.", reply.Response)
	assert.Equal(t, 0.8, reply.Confidence)

	sess := store.Sessions[reply.SessionID]
	require.NotNil(t, sess)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, 1, sess.MessageCount)
	assert.Equal(t, []string{"doc1"}, sess.ContextDocumentIDs)
	assert.False(t, sess.LastActivity.IsZero())

	msgs := store.Messages[reply.SessionID]
	require.Len(t, msgs, 1)
	assert.Equal(t, "what did I read about Go?", msgs[0].Query)
	assert.Equal(t, "Grounded answer.", msgs[0].Response)
	require.Len(t, msgs[0].Sources, 1)
	assert.Equal(t, "doc1", msgs[0].Sources[0].DocumentID)
}

func TestChatContinuesExistingSession(t *testing.T) {
	svc, store, _ := newChatFixture(defaultAnswer())

	first, err := svc.Chat(context.Background(), "u1", "", "first question")
	require.NoError(t, err)
	second, err := svc.Chat(context.Background(), "u1", first.SessionID, "second question")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 2, store.Sessions[first.SessionID].MessageCount)
	assert.Len(t, store.Messages[first.SessionID], 2)
}

func TestChatSessionOwnership(t *testing.T) {
	svc, store, _ := newChatFixture(defaultAnswer())

	store.Sessions["s-other"] = &models.ConversationSession{ID: "s-other", UserID: "other"}

	_, err := svc.Chat(context.Background(), "u1", "s-other", "hello")
	assert.ErrorIs(t, err, core.ErrNotFound, "foreign sessions read as missing")

	_, err = svc.Chat(context.Background(), "u1", "no-such-session", "hello")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestChatEmptyMessage(t *testing.T) {
	svc, _, _ := newChatFixture(defaultAnswer())

	_, err := svc.Chat(context.Background(), "u1", "", "   ")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestChatAnswerFailurePropagates(t *testing.T) {
	store := coretest.NewStore()
	svc := NewChatService(store, &fakeAnswerer{err: errors.New("search down")}, &fakeLLM{})

	_, err := svc.Chat(context.Background(), "u1", "", "question")
	require.Error(t, err)
	assert.Empty(t, store.Messages, "failed turns are not recorded")
}

func TestRollingSummaryEveryFifthMessage(t *testing.T) {
	svc, store, llm := newChatFixture(defaultAnswer())

	sessionID := ""
	for i := 1; i <= 5; i++ {
		reply, err := svc.Chat(context.Background(), "u1", sessionID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		sessionID = reply.SessionID

		sess := store.Sessions[sessionID]
		if i < 5 {
			assert.Empty(t, sess.Summary, "no summary before the fifth message")
		} else {
			assert.Equal(t, "Conversation summary.", sess.Summary)
		}
	}
	assert.Equal(t, 1, llm.calls, "summary generated once per five messages")
}

func TestSummaryFailureKeepsPreviousSummary(t *testing.T) {
	svc, store, llm := newChatFixture(defaultAnswer())
	llm.err = errors.New("llm down")

	store.Sessions["s1"] = &models.ConversationSession{ID: "s1", UserID: "u1", MessageCount: 4, Summary: "old summary"}

	_, err := svc.Chat(context.Background(), "u1", "s1", "fifth question")
	require.NoError(t, err, "summary failure never fails the turn")
	assert.Equal(t, "old summary", store.Sessions["s1"].Summary)
}

func TestContextDocumentsCappedAtTen(t *testing.T) {
	answer := &search.Answer{Response: "ok"}
	for i := 0; i < 4; i++ {
		answer.Sources = append(answer.Sources, models.MessageSource{DocumentID: fmt.Sprintf("new%d", i)})
	}
	svc, store, _ := newChatFixture(answer)

	existing := make([]string, 9)
	for i := range existing {
		existing[i] = fmt.Sprintf("old%d", i)
	}
	store.Sessions["s1"] = &models.ConversationSession{ID: "s1", UserID: "u1", ContextDocumentIDs: existing}

	_, err := svc.Chat(context.Background(), "u1", "s1", "question")
	require.NoError(t, err)

	got := store.Sessions["s1"].ContextDocumentIDs
	require.Len(t, got, 10)
	assert.Equal(t, []string{"new0", "new1", "new2", "new3"}, got[:4], "fresh citations first")
	assert.Equal(t, "old5", got[9], "oldest context dropped past the cap")
}

func TestContextDocumentsDeduped(t *testing.T) {
	svc, store, _ := newChatFixture(defaultAnswer())

	store.Sessions["s1"] = &models.ConversationSession{ID: "s1", UserID: "u1", ContextDocumentIDs: []string{"doc1", "doc2"}}

	_, err := svc.Chat(context.Background(), "u1", "s1", "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc2"}, store.Sessions["s1"].ContextDocumentIDs)
}

func TestSessionListingAndDeletion(t *testing.T) {
	svc, store, _ := newChatFixture(defaultAnswer())

	reply, err := svc.Chat(context.Background(), "u1", "", "question")
	require.NoError(t, err)

	sessions, err := svc.Sessions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	msgs, err := svc.Messages(context.Background(), "u1", reply.SessionID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = svc.Messages(context.Background(), "intruder", reply.SessionID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = svc.DeleteSession(context.Background(), "intruder", reply.SessionID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.DeleteSession(context.Background(), "u1", reply.SessionID))
	assert.Empty(t, store.Sessions)
	assert.Empty(t, store.Messages[reply.SessionID])
}
