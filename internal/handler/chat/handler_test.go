package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
	chatservice "github.com/kinnect/kinnect-chat/backend/internal/service/chat"
)

func setupRouter(t *testing.T, completer chatservice.Completer) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	if completer == nil {
		completer = chatservice.CompleterFunc(func(_ context.Context, history []chat.Message) (chat.Message, error) {
			return chat.Message{Content: "Sure, " + history[len(history)-1].Content}, nil
		})
	}
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), completer, chatservice.ServiceConfig{}, nil)
	t.Cleanup(chatSvc.Close)

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	return r, chatSvc
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, SessionResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var decoded SessionResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &decoded)
	return resp, decoded
}

func createSession(t *testing.T, r http.Handler) SessionResponse {
	t.Helper()
	resp, session := do(t, r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	return session
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(t, nil)

	session := createSession(t, r)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "general", session.ActivePersonaID)
	require.Len(t, session.History, 1)
	assert.Equal(t, chat.RoleAssistant, session.History[0].Role)
	assert.False(t, session.Pending)
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter(t, nil)

	resp, _ := do(t, r, http.MethodGet, "/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSubmitMessage(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, got := do(t, r, http.MethodPost, "/sessions/"+session.ID+"/messages", map[string]string{"content": "Hello"})
	require.Equal(t, http.StatusOK, resp.Code)

	require.NotNil(t, got.Accepted)
	assert.True(t, *got.Accepted)
	require.NotNil(t, got.Reply)
	assert.Equal(t, "Sure, Hello", got.Reply.Content)
	assert.Len(t, got.History, 3)
	assert.False(t, got.Pending)
}

func TestSubmitBlankMessageIsNoop(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, got := do(t, r, http.MethodPost, "/sessions/"+session.ID+"/messages", map[string]string{"content": "   "})
	require.Equal(t, http.StatusOK, resp.Code)

	require.NotNil(t, got.Accepted)
	assert.False(t, *got.Accepted)
	assert.Len(t, got.History, 1)
}

func TestSelectPersona(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, got := do(t, r, http.MethodPut, "/sessions/"+session.ID+"/persona", map[string]string{"personaId": "healthcare"})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "healthcare", got.ActivePersonaID)
	require.Len(t, got.History, 3)
	assert.Equal(t, chat.RoleSystem, got.History[1].Role)
	// The directive is history, not a bubble.
	assert.Len(t, got.Transcript, 2)
}

func TestSelectUnknownPersona(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, _ := do(t, r, http.MethodPut, "/sessions/"+session.ID+"/persona", map[string]string{"personaId": "aerospace"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	_, got := do(t, r, http.MethodGet, "/sessions/"+session.ID, nil)
	assert.Equal(t, "general", got.ActivePersonaID)
	assert.Len(t, got.History, 1)
}

func TestSelectPersonaMissingID(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, _ := do(t, r, http.MethodPut, "/sessions/"+session.ID+"/persona", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBackendFailureReturnsBadGateway(t *testing.T) {
	r, _ := setupRouter(t, chatservice.CompleterFunc(func(context.Context, []chat.Message) (chat.Message, error) {
		return chat.Message{}, errors.New("upstream down")
	}))
	session := createSession(t, r)

	resp, got := do(t, r, http.MethodPost, "/sessions/"+session.ID+"/messages", map[string]string{"content": "Hello"})
	require.Equal(t, http.StatusBadGateway, resp.Code)

	assert.Len(t, got.History, 2)
	assert.False(t, got.Pending)
	assert.Contains(t, got.LastError, "upstream down")
}

func TestSubmitFileJSON(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, got := do(t, r, http.MethodPost, "/sessions/"+session.ID+"/files", chat.FileDescriptor{Name: "sales.csv"})
	require.Equal(t, http.StatusOK, resp.Code)

	require.Len(t, got.History, 3)
	assert.Equal(t, "I've uploaded a file named sales.csv. Please help me analyze its contents and provide insights.", got.History[1].Content)
}

func TestSubmitFileMultipart(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "budget.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("not inspected"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var got SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got.History[1].Content, "a file named budget.xlsx.")
}

func TestSubmitFileWithoutName(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, _ := do(t, r, http.MethodPost, "/sessions/"+session.ID+"/files", chat.FileDescriptor{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitWithoutWaiting(t *testing.T) {
	release := make(chan struct{})
	r, _ := setupRouter(t, chatservice.CompleterFunc(func(ctx context.Context, _ []chat.Message) (chat.Message, error) {
		select {
		case <-release:
			return chat.Message{Content: "late"}, nil
		case <-ctx.Done():
			return chat.Message{}, ctx.Err()
		}
	}))
	defer close(release)
	session := createSession(t, r)

	resp, got := do(t, r, http.MethodPost, "/sessions/"+session.ID+"/messages?wait=false", map[string]string{"content": "Hello"})
	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.True(t, got.Pending)

	resp, _ = do(t, r, http.MethodPut, "/sessions/"+session.ID+"/persona", map[string]string{"personaId": "finance"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp, got = do(t, r, http.MethodPost, "/sessions/"+session.ID+"/messages", map[string]string{"content": "again"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, *got.Accepted)
	assert.Len(t, got.History, 2)
}

func TestDeleteSession(t *testing.T) {
	r, _ := setupRouter(t, nil)
	session := createSession(t, r)

	resp, _ := do(t, r, http.MethodDelete, "/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp, _ = do(t, r, http.MethodGet, "/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(chatservice.ErrExchangeInFlight))
	assert.Equal(t, http.StatusGone, StatusFor(chatservice.ErrSessionClosed))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("other")))
}
