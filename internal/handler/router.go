package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kinnect/kinnect-chat/backend/internal/handler/chat"
	"github.com/kinnect/kinnect-chat/backend/internal/handler/persona"
	"github.com/kinnect/kinnect-chat/backend/internal/handler/realtime"
	"github.com/kinnect/kinnect-chat/backend/internal/handler/stream"
	middlewarePkg "github.com/kinnect/kinnect-chat/backend/internal/middleware"
	personaModel "github.com/kinnect/kinnect-chat/backend/internal/model/persona"
	chatService "github.com/kinnect/kinnect-chat/backend/internal/service/chat"
	"github.com/kinnect/kinnect-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, allowedOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, logger)
	streamHandler := stream.New(chatSvc, logger)
	wsHandler := realtime.New(chatSvc, allowedOrigins, logger)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"sessions": chatSvc.Count(),
			})
		})

		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
