package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
	chatservice "github.com/kinnect/kinnect-chat/backend/internal/service/chat"
)

func setup(t *testing.T) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	completer := chatservice.CompleterFunc(func(context.Context, []chat.Message) (chat.Message, error) {
		return chat.Message{Content: "ok"}, nil
	})
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), completer, chatservice.ServiceConfig{}, nil)
	t.Cleanup(chatSvc.Close)

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	return r, chatSvc
}

func TestEventsSendsInitialSnapshot(t *testing.T) {
	r, chatSvc := setup(t)
	ctrl, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/sessions/"+ctrl.Snapshot().ID+"/events", nil).WithContext(ctx)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "event: snapshot\n")
	assert.Contains(t, resp.Body.String(), `"activePersonaId":"general"`)
}

func TestEventsEndsWhenSessionIsDeleted(t *testing.T) {
	r, chatSvc := setup(t)
	ctrl, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)
	id := ctrl.Snapshot().ID

	resp := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/events", nil))
	}()

	// Give the handler time to subscribe before the session goes away.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, chatSvc.DeleteSession(context.Background(), id))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after session deletion")
	}
	assert.Contains(t, resp.Body.String(), "event: closed\n")
}

func TestEventsUnknownSession(t *testing.T) {
	r, _ := setup(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/sessions/missing/events", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
