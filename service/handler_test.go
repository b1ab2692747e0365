package service_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func createSessionHTTP(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	body, contentType := multipartUpload(t, "image", "photo.jpg", jpegBytes(t, 400, 300))
	req := httptest.NewRequest(http.MethodPost, "/api/session/create", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHandler_CreateSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newService(t)
	mux := service.NewHandler(svc, nil).Routes()

	id := createSessionHTTP(t, mux)
	_, err := sessions.Get(id)
	assert.NoError(t, err)
}

func TestHandler_CreateSessionMissingFile(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	mux := service.NewHandler(svc, nil).Routes()

	body, contentType := multipartUpload(t, "picture", "photo.jpg", jpegBytes(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/api/session/create", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing image file")
}

func TestHandler_Chat(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, segchat.AssistantMessage{
		Content:   []segchat.ContentBlock{segchat.TextBlock{Text: "Hello."}},
		Timestamp: time.Now(),
	})
	mux := service.NewHandler(svc, nil).Routes()
	id := createSessionHTTP(t, mux)

	payload, err := json.Marshal(map[string]string{"session_id": id, "message": "hi"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/session/chat", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Answer    string `json:"answer"`
		State     string `json:"state"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello.", resp.Answer)
	assert.Equal(t, "answered", resp.State)
	assert.Equal(t, id, resp.SessionID)
}

func TestHandler_ChatUnknownSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	mux := service.NewHandler(svc, nil).Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/session/chat",
		strings.NewReader(`{"session_id": "nope", "message": "hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ChatMalformedBody(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	mux := service.NewHandler(svc, nil).Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/session/chat", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Delete(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newService(t)
	mux := service.NewHandler(svc, nil).Routes()
	id := createSessionHTTP(t, mux)

	payload := `{"session_id": "` + id + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/session/delete", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, sessions.Len())

	// Deleting again is a 404.
	req = httptest.NewRequest(http.MethodPost, "/api/session/delete", strings.NewReader(payload))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	mux := service.NewHandler(svc, nil).Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health service.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.ActiveSessions)
}
