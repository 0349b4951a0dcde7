package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/models"
)

func multipartUpload(t *testing.T, filename, contentType, title string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	if title != "" {
		require.NoError(t, w.WriteField("title", title))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadAccepted(t *testing.T) {
	e := newEnv()

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "My Notes", []byte("some plain notes"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ingestResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.TaskID)
	assert.NotEmpty(t, resp.DocumentID)

	require.Len(t, e.sub.submitted, 1)
	src := e.sub.submitted[0]
	assert.Equal(t, models.SourceTypeUpload, src.Type)
	assert.Equal(t, "notes.txt", src.FileName)
	assert.Equal(t, "text/plain", src.ContentType)
	assert.Equal(t, []byte("some plain notes"), src.Data)
	assert.Equal(t, "My Notes", src.Title)
}

func TestUploadStripsPathComponents(t *testing.T) {
	e := newEnv()

	body, contentType := multipartUpload(t, "../../etc/passwd", "text/plain", "", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, e.sub.submitted, 1)
	assert.Equal(t, "passwd", e.sub.submitted[0].FileName)
}

func TestUploadWithoutFileField(t *testing.T) {
	e := newEnv()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "no file"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocumentsWithFilters(t *testing.T) {
	e := newEnv()
	tok := token(t, "u1")

	e.seedDocument(models.Document{
		ID: "d1", UserID: "u1", Status: models.DocStatusCompleted,
		Metadata:  models.ContentMetadata{ContentType: "technical", Quality: "good"},
		Tags:      []string{"go", "concurrency"},
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	e.seedDocument(models.Document{
		ID: "d2", UserID: "u1", Status: models.DocStatusCompleted,
		Metadata:  models.ContentMetadata{ContentType: "news", Quality: "fair"},
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	e.seedDocument(models.Document{ID: "d3", UserID: "someone-else", Status: models.DocStatusCompleted})

	var resp struct {
		Documents []models.Document `json:"documents"`
		Total     int               `json:"total"`
	}

	all := e.do(t, http.MethodGet, "/api/documents", tok, nil)
	require.Equal(t, http.StatusOK, all.Code)
	decode(t, all, &resp)
	assert.Equal(t, 2, resp.Total)

	filtered := e.do(t, http.MethodGet, "/api/documents?content_type=technical&tag=go", tok, nil)
	require.Equal(t, http.StatusOK, filtered.Code)
	decode(t, filtered, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "d1", resp.Documents[0].ID)

	dated := e.do(t, http.MethodGet, "/api/documents?from=2024-04-01", tok, nil)
	require.Equal(t, http.StatusOK, dated.Code)
	decode(t, dated, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "d2", resp.Documents[0].ID)

	badDate := e.do(t, http.MethodGet, "/api/documents?from=yesterday", tok, nil)
	assert.Equal(t, http.StatusBadRequest, badDate.Code)
}

func TestGetDocumentOwnership(t *testing.T) {
	e := newEnv()
	e.seedDocument(models.Document{ID: "d1", UserID: "u1", Title: "Mine"})

	own := e.do(t, http.MethodGet, "/api/documents/d1", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, own.Code)
	var doc models.Document
	decode(t, own, &doc)
	assert.Equal(t, "Mine", doc.Title)

	foreign := e.do(t, http.MethodGet, "/api/documents/d1", token(t, "u2"), nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)

	unknown := e.do(t, http.MethodGet, "/api/documents/ghost", token(t, "u1"), nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestDocumentChunks(t *testing.T) {
	e := newEnv()
	e.seedDocument(models.Document{ID: "d1", UserID: "u1"})
	e.store.Mu.Lock()
	e.store.Chunks["d1"] = []models.DocumentChunk{
		{ID: "c1", DocumentID: "d1", Position: 0, Text: "first"},
		{ID: "c2", DocumentID: "d1", Position: 1, Text: "second"},
	}
	e.store.Mu.Unlock()

	rec := e.do(t, http.MethodGet, "/api/documents/d1/chunks", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DocumentID string                 `json:"document_id"`
		Chunks     []models.DocumentChunk `json:"chunks"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "d1", resp.DocumentID)
	assert.Len(t, resp.Chunks, 2)
}

func TestDeleteDocument(t *testing.T) {
	e := newEnv()
	e.seedDocument(models.Document{ID: "d1", UserID: "u1"})

	rec := e.do(t, http.MethodDelete, "/api/documents/d1", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	gone := e.do(t, http.MethodGet, "/api/documents/d1", token(t, "u1"), nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}
