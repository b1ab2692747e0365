package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/fwojciec/segchat"
)

// maxUploadBytes caps session image uploads at 16 MiB.
const maxUploadBytes = 16 << 20

// Handler exposes the service over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an HTTP handler for the service.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns a mux with all API endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session/create", h.handleCreate)
	mux.HandleFunc("POST /api/session/chat", h.handleChat)
	mux.HandleFunc("POST /api/session/delete", h.handleDelete)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	return mux
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, segchat.ErrUserInput, "expected multipart form with an image file")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, segchat.ErrUserInput, "missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.writeError(w, err, "reading upload")
		return
	}

	id, err := h.service.CreateSession(r.Context(), data, header.Filename)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"message":    "Session created. Describe what to segment.",
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, segchat.ErrUserInput, "malformed JSON body")
		return
	}

	resp, err := h.service.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		*ChatResponse
		SessionID string `json:"session_id"`
	}{resp, req.SessionID})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, segchat.ErrUserInput, "malformed JSON body")
		return
	}

	if err := h.service.DeleteSession(r.Context(), req.SessionID); err != nil {
		h.writeError(w, err, "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted."})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Healthz())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("writing response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes. detail, when
// non-empty, replaces the error's own message in the response body.
func (h *Handler) writeError(w http.ResponseWriter, err error, detail string) {
	status := http.StatusInternalServerError
	var upstream *segchat.UpstreamError
	switch {
	case errors.Is(err, segchat.ErrUserInput),
		errors.Is(err, segchat.ErrValidation),
		errors.Is(err, segchat.ErrImageDecode):
		status = http.StatusBadRequest
	case errors.Is(err, segchat.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	}

	msg := detail
	if msg == "" {
		msg = err.Error()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
