package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docutor/internal/auth"
	"docutor/internal/llm"
	"docutor/internal/memory"
	"docutor/internal/models"
	"docutor/internal/rag"
	"docutor/internal/vectorstore"
)

type fakeTurnStore struct {
	sessions map[string]int64
	turns    []models.ChatTurn
}

func newFakeTurnStore() *fakeTurnStore {
	return &fakeTurnStore{sessions: make(map[string]int64)}
}

func (f *fakeTurnStore) InsertSession(_ context.Context, sessionID string, ownerID int64) error {
	f.sessions[sessionID] = ownerID
	return nil
}

func (f *fakeTurnStore) InsertTurn(_ context.Context, turn models.ChatTurn) error {
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeTurnStore) RecentTurns(_ context.Context, sessionID string, k int) ([]models.ChatTurn, error) {
	var out []models.ChatTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	if len(out) > k {
		out = out[len(out)-k:]
	}
	return out, nil
}

func (f *fakeTurnStore) SessionOwner(_ context.Context, sessionID string) (int64, error) {
	owner, ok := f.sessions[sessionID]
	if !ok {
		return 0, memory.ErrSessionNotFound
	}
	return owner, nil
}

type fakeRetriever struct{}

func (fakeRetriever) GetOrCreateCollection(_ context.Context, ownerID int64) (*vectorstore.Collection, error) {
	return &vectorstore.Collection{OwnerID: ownerID, Name: vectorstore.CollectionName(ownerID)}, nil
}

func (fakeRetriever) Query(_ context.Context, _ *vectorstore.Collection, _ string, _ int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

type fakeGateway struct{}

func (fakeGateway) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "a generated answer", Model: "test-model"}, nil
}

func (fakeGateway) Embed(_ context.Context, _ llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, errors.New("not used")
}

func chatTestRouter(t *testing.T) (*chi.Mux, *memory.Store) {
	t.Helper()
	mem := memory.NewStore(newFakeTurnStore())
	orch := rag.NewOrchestrator(fakeRetriever{}, mem, fakeGateway{}, 4, 10)
	h := NewChatHandler(orch, mem, 10)

	r := chi.NewRouter()
	r.Post("/sessions", h.StartSession)
	r.Get("/sessions/{id}/history", h.History)
	r.Post("/query", h.Query)
	return r, mem
}

func doAs(r http.Handler, ownerID int64, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req = req.WithContext(auth.WithOwner(req.Context(), ownerID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, r http.Handler, ownerID int64) string {
	t.Helper()
	rec := doAs(r, ownerID, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["session_id"])
	return body["session_id"]
}

func TestStartSessionCreates(t *testing.T) {
	r, _ := chatTestRouter(t)
	sid := startSession(t, r, 1)
	assert.NotEmpty(t, sid)
}

func TestStartSessionRequiresAuth(t *testing.T) {
	r, _ := chatTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueryAnswersAndRecords(t *testing.T) {
	r, mem := chatTestRouter(t)
	sid := startSession(t, r, 1)

	body, _ := json.Marshal(map[string]string{"session_id": sid, "question": "what is this about?"})
	rec := doAs(r, 1, http.MethodPost, "/query", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rag.AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a generated answer", resp.Answer)
	assert.Equal(t, sid, resp.SessionID)

	history, err := mem.RecentHistory(context.Background(), sid, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "what is this about?", history[0].Question)
}

func TestQueryValidation(t *testing.T) {
	r, _ := chatTestRouter(t)
	sid := startSession(t, r, 1)

	noQuestion, _ := json.Marshal(map[string]string{"session_id": sid})
	rec := doAs(r, 1, http.MethodPost, "/query", noQuestion)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noSession, _ := json.Marshal(map[string]string{"question": "q"})
	rec = doAs(r, 1, http.MethodPost, "/query", noSession)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAs(r, 1, http.MethodPost, "/query", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryForeignSessionLooksMissing(t *testing.T) {
	r, _ := chatTestRouter(t)
	sid := startSession(t, r, 1)

	body, _ := json.Marshal(map[string]string{"session_id": sid, "question": "q"})
	rec := doAs(r, 2, http.MethodPost, "/query", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryUnknownSession(t *testing.T) {
	r, _ := chatTestRouter(t)
	body, _ := json.Marshal(map[string]string{"session_id": "missing", "question": "q"})
	rec := doAs(r, 1, http.MethodPost, "/query", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryReturnsTurns(t *testing.T) {
	r, _ := chatTestRouter(t)
	sid := startSession(t, r, 1)

	body, _ := json.Marshal(map[string]string{"session_id": sid, "question": "first question"})
	rec := doAs(r, 1, http.MethodPost, "/query", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doAs(r, 1, http.MethodGet, "/sessions/"+sid+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Turns []memory.QA `json:"turns"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, "first question", resp.Turns[0].Question)
}

func TestHistoryForeignSession(t *testing.T) {
	r, _ := chatTestRouter(t)
	sid := startSession(t, r, 1)

	rec := doAs(r, 2, http.MethodGet, "/sessions/"+sid+"/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
