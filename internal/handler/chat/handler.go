package chat

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	chatService "github.com/kinnect/kinnect-chat/backend/internal/service/chat"
	"github.com/kinnect/kinnect-chat/backend/pkg/utils"
)

// Handler exposes the session controller operations over HTTP.
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates the chat handler.
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.Named("chat"),
	}
}

// SessionResponse is the render data for one session.
type SessionResponse struct {
	chat.Session
	Transcript []chat.Message `json:"transcript"`
	Accepted   *bool          `json:"accepted,omitempty"`
	Reply      *chat.Message  `json:"reply,omitempty"`
}

// NewSessionResponse builds the render data for s.
func NewSessionResponse(s chat.Session) SessionResponse {
	return SessionResponse{Session: s, Transcript: s.Transcript()}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.handleGetSession)
		s.Delete("/", h.handleDeleteSession)
		s.Put("/persona", h.handleSelectPersona)
		s.Post("/messages", h.handleSubmitMessage)
		s.Post("/files", h.handleSubmitFile)
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, NewSessionResponse(ctrl.Snapshot()))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, NewSessionResponse(ctrl.Snapshot()))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectPersona(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.PersonaID == "" {
		utils.RespondError(w, http.StatusBadRequest, "personaId is required")
		return
	}

	ex, err := ctrl.SelectPersona(r.Context(), payload.PersonaID)
	h.respondExchange(w, r, ctrl, ex, err)
}

func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ex, err := ctrl.SubmitUserText(r.Context(), payload.Content)
	h.respondExchange(w, r, ctrl, ex, err)
}

func (h *Handler) handleSubmitFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	file, err := readFileDescriptor(w, r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ex, err := ctrl.SubmitFile(r.Context(), file)
	h.respondExchange(w, r, ctrl, ex, err)
}

// respondExchange waits for the reply unless the client passed ?wait=false,
// in which case the pending snapshot is returned with 202.
func (h *Handler) respondExchange(w http.ResponseWriter, r *http.Request, ctrl *chatService.Controller, ex *chatService.Exchange, err error) {
	if err != nil {
		respondControllerError(w, err)
		return
	}

	resp := NewSessionResponse(ctrl.Snapshot())
	accepted := ex != nil
	resp.Accepted = &accepted

	if ex == nil {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}
	if r.URL.Query().Get("wait") == "false" {
		utils.RespondJSON(w, http.StatusAccepted, resp)
		return
	}

	reply, err := ex.Wait(r.Context())
	if r.Context().Err() != nil {
		// Client went away; the reply still lands in the session.
		return
	}

	resp = NewSessionResponse(ctrl.Snapshot())
	resp.Accepted = &accepted
	if err != nil {
		h.logger.Warn("backend exchange failed", zap.String("session", resp.ID), zap.Error(err))
		utils.RespondJSON(w, http.StatusBadGateway, resp)
		return
	}
	resp.Reply = &reply
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Controller, bool) {
	ctrl, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondControllerError(w, err)
		return nil, false
	}
	return ctrl, true
}

// StatusFor maps controller errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrUnknownPersona):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrExchangeInFlight):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrFileNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, chatService.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondControllerError(w http.ResponseWriter, err error) {
	utils.RespondError(w, StatusFor(err), err.Error())
}

// readFileDescriptor accepts either a multipart upload (field "file") or a
// JSON descriptor. File contents are never read.
func readFileDescriptor(w http.ResponseWriter, r *http.Request) (chat.FileDescriptor, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var file chat.FileDescriptor
		if err := utils.DecodeJSON(w, r, &file); err != nil {
			return chat.FileDescriptor{}, err
		}
		return file, nil
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return chat.FileDescriptor{}, err
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return chat.FileDescriptor{}, errors.New("multipart field \"file\" is required")
		}
		if err != nil {
			return chat.FileDescriptor{}, err
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		name := part.FileName()
		if name != "" {
			name = filepath.Base(name)
		}
		file := chat.FileDescriptor{
			Name:        name,
			ContentType: part.Header.Get("Content-Type"),
		}
		_ = part.Close()
		return file, nil
	}
}
