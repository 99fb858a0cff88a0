package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	chatService "github.com/kinnect/kinnect-chat/backend/internal/service/chat"
	"github.com/kinnect/kinnect-chat/backend/pkg/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Intent types accepted from the client.
const (
	IntentMessage = "message"
	IntentPersona = "persona"
	IntentFile    = "file"
)

// Intent is one user action sent over the socket.
type Intent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	PersonaID string `json:"personaId,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// Handler drives a session over a WebSocket: intents in, updates out.
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a websocket handler. An empty origin list accepts every origin.
func New(chatSvc *chatService.Service, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes mounts the socket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctrl, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.String("session", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session", sessionID))
	logger.Info("connection established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := ctrl.Subscribe(32)
	replies := make(chan chatService.Update, 8)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, conn, updates, replies, logger)
		cancel()
		// Unblocks the reader when the writer gives up first.
		_ = conn.Close()
	}()

	h.readLoop(ctx, conn, ctrl, replies, logger)

	cancel()
	unsubscribe()
	wg.Wait()
	logger.Info("connection closed")
}

// writeLoop is the only goroutine writing to conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan chatService.Update, replies <-chan chatService.Update, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(u chatService.Update) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(u); err != nil {
			logger.Debug("write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				// Session discarded while the socket was open.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if !write(u) {
				return
			}
		case u := <-replies:
			if !write(u) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, ctrl *chatService.Controller, replies chan<- chatService.Update, logger *zap.Logger) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var intent Intent
		if err := conn.ReadJSON(&intent); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read failed", zap.Error(err))
			}
			return
		}

		if err := dispatch(ctx, ctrl, intent); err != nil {
			select {
			case replies <- chatService.Update{Event: chatService.UpdateError, Error: err.Error()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

var errUnknownIntent = errors.New("unknown intent type")

// dispatch forwards one intent to the controller. Replies arrive through the
// subscription, so exchanges are not awaited here.
func dispatch(ctx context.Context, ctrl *chatService.Controller, intent Intent) error {
	var err error
	switch intent.Type {
	case IntentMessage:
		_, err = ctrl.SubmitUserText(ctx, intent.Content)
	case IntentPersona:
		_, err = ctrl.SelectPersona(ctx, intent.PersonaID)
	case IntentFile:
		_, err = ctrl.SubmitFile(ctx, chat.FileDescriptor{Name: intent.Name, Size: intent.Size})
	default:
		err = fmt.Errorf("%w: %q", errUnknownIntent, intent.Type)
	}
	return err
}
