package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
	"github.com/kinnect/kinnect-chat/backend/pkg/utils"
)

// Handler serves the industry catalog.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes mounts the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{personaID}", h.handleGetPersona)
	r.Get("/guide", h.handleGuide)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "personaID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGuide(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, newGuide(h.personas.Default()))
}
