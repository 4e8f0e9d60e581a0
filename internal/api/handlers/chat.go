package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docutor/internal/auth"
	"docutor/internal/memory"
	"docutor/internal/rag"
)

type ChatHandler struct {
	orchestrator *rag.Orchestrator
	memory       *memory.Store
	historyK     int
}

func NewChatHandler(o *rag.Orchestrator, mem *memory.Store, historyK int) *ChatHandler {
	if historyK <= 0 {
		historyK = 10
	}
	return &ChatHandler{orchestrator: o, memory: mem, historyK: historyK}
}

func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}

	sessionID, err := h.memory.StartSession(r.Context(), ownerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}

	var req rag.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id required"})
		return
	}

	if !h.authorizeSession(w, r, ownerID, req.SessionID) {
		return
	}

	req.OwnerID = ownerID
	resp, err := h.orchestrator.Answer(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}

	sessionID := chi.URLParam(r, "id")
	if !h.authorizeSession(w, r, ownerID, sessionID) {
		return
	}

	k, _ := strconv.Atoi(r.URL.Query().Get("k"))
	if k <= 0 {
		k = h.historyK
	}

	turns, err := h.memory.RecentHistory(r.Context(), sessionID, k)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"turns": turns, "count": len(turns)})
}

// authorizeSession rejects sessions that do not exist or belong to someone
// else. Both cases look identical to the caller.
func (h *ChatHandler) authorizeSession(w http.ResponseWriter, r *http.Request, ownerID int64, sessionID string) bool {
	sessionOwner, err := h.memory.OwnerOf(r.Context(), sessionID)
	if errors.Is(err, memory.ErrSessionNotFound) || (err == nil && sessionOwner != ownerID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return false
	}
	return true
}
