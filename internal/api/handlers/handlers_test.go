package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core/coretest"
	"github.com/markdave123-py/Memora/internal/core/pipeline"
	"github.com/markdave123-py/Memora/internal/core/search"
	"github.com/markdave123-py/Memora/internal/models"
	"github.com/markdave123-py/Memora/internal/services"
)

const testSecret = "handler-test-secret"

// fakeSubmitter satisfies services.TaskSubmitter without running workers.
type fakeSubmitter struct {
	active    map[string]*models.TaskRecord
	submitted []pipeline.Source
	err       error
}

func (f *fakeSubmitter) Submit(_ context.Context, userID, documentID string, src pipeline.Source) (*models.TaskRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, src)
	return &models.TaskRecord{
		TaskID:     "task-" + documentID,
		DocumentID: documentID,
		UserID:     userID,
		Status:     pipeline.StatusPending,
		Stage:      pipeline.StageInitialized,
		StartedAt:  time.Now(),
	}, nil
}

func (f *fakeSubmitter) ActiveTaskForDocument(documentID string) (*models.TaskRecord, bool) {
	rec, ok := f.active[documentID]
	return rec, ok
}

// fakeTasks satisfies TaskController.
type fakeTasks struct {
	records   map[string]*models.TaskRecord
	cancelErr error
	cancelled []string
	stats     pipeline.Stats
}

func (f *fakeTasks) Status(_ context.Context, taskID string) (*models.TaskRecord, error) {
	rec, ok := f.records[taskID]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeTasks) Cancel(taskID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, taskID)
	return nil
}

func (f *fakeTasks) Metrics() pipeline.Stats { return f.stats }

type fakeAnswerer struct {
	answer *search.Answer
	err    error
}

func (f *fakeAnswerer) Answer(_ context.Context, _, _ string) (*search.Answer, error) {
	return f.answer, f.err
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

type fakeQueryEmbedder struct {
	vec []float32
	err error
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.vec, "fake", nil
}

// env wires the full route table over in-memory fakes, with the real JWT
// middleware in front of the protected group.
type env struct {
	store  *coretest.Store
	sub    *fakeSubmitter
	tasks  *fakeTasks
	router chi.Router
}

func newEnv() *env {
	store := coretest.NewStore()
	sub := &fakeSubmitter{active: make(map[string]*models.TaskRecord)}
	tasks := &fakeTasks{records: make(map[string]*models.TaskRecord)}

	users := services.NewUserService(store)
	documents := services.NewDocumentService(store, nil, "")
	ingest := services.NewIngestService(store, nil, "", sub)
	chat := services.NewChatService(store, &fakeAnswerer{answer: &search.Answer{
		Response:   "an answer",
		Confidence: 0.8,
		Sources:    []models.MessageSource{{DocumentID: "doc-1", Title: "Doc One", Relevance: 0.9}},
	}}, &fakeLLM{response: "summary"})
	searcher := search.NewService(store, &fakeQueryEmbedder{vec: []float32{0.1, 0.2}}, 0.7)

	authHandler := NewAuthHandler(users, testSecret)
	ingestHandler := NewIngestHandler(ingest)
	taskHandler := NewTaskHandler(tasks)
	docHandler := NewDocumentHandler(documents, ingest)
	searchHandler := NewSearchHandler(searcher)
	chatHandler := NewChatHandler(chat)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.NewJWTMiddleware(testSecret))
			protected.Post("/ingest", ingestHandler.Ingest)
			protected.Post("/documents/upload", docHandler.Upload)
			protected.Get("/tasks/{taskID}", taskHandler.GetStatus)
			protected.Delete("/tasks/{taskID}", taskHandler.Cancel)
			protected.Get("/pipeline/metrics", taskHandler.Metrics)
			protected.Get("/documents", docHandler.List)
			protected.Get("/documents/{documentID}", docHandler.Get)
			protected.Get("/documents/{documentID}/chunks", docHandler.Chunks)
			protected.Delete("/documents/{documentID}", docHandler.Delete)
			protected.Post("/search", searchHandler.Search)
			protected.Post("/chat", chatHandler.Chat)
			protected.Get("/chat/sessions", chatHandler.ListSessions)
			protected.Get("/chat/sessions/{sessionID}/messages", chatHandler.ListMessages)
			protected.Delete("/chat/sessions/{sessionID}", chatHandler.DeleteSession)
		})
	})

	return &env{store: store, sub: sub, tasks: tasks, router: r}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": userID, "exp": time.Now().Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a JSON request through the router. An empty token leaves the
// request unauthenticated.
func (e *env) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func (e *env) seedDocument(doc models.Document) {
	e.store.Mu.Lock()
	defer e.store.Mu.Unlock()
	cp := doc
	e.store.Documents[doc.ID] = &cp
}

func (e *env) seedSession(sess models.ConversationSession) {
	e.store.Mu.Lock()
	defer e.store.Mu.Unlock()
	cp := sess
	e.store.Sessions[sess.ID] = &cp
}
