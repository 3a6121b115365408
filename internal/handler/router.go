package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	chatHandler "github.com/docchat-app/docchat/internal/handler/chat"
	streamHandler "github.com/docchat-app/docchat/internal/handler/stream"
	wsHandler "github.com/docchat-app/docchat/internal/handler/ws"
	aiService "github.com/docchat-app/docchat/internal/service/ai"
	conversationService "github.com/docchat-app/docchat/internal/service/conversation"
	"github.com/docchat-app/docchat/pkg/utils"
	"github.com/docchat-app/docchat/web"
)

// NewRouter wires HTTP routes to core services. The AI service may be nil
// when no provider credentials are configured; submission routes then answer
// 503 while the page and session routes keep working.
func NewRouter(convSvc *conversationService.Service, aiSvc *aiService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(convSvc).RegisterRoutes(api)

		if aiSvc != nil {
			streamHandler.New(aiSvc, convSvc).RegisterRoutes(api)
			wsHandler.New(aiSvc, convSvc).RegisterRoutes(api)
		} else {
			api.Post("/chat/{sessionID}", handleUnavailable)
			api.Get("/ws/{sessionID}", handleUnavailable)
		}
	})

	// The single page itself. Equivalent of http.ServeFileFS (Go 1.22+),
	// spelled out for Go 1.21 toolchains.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		f, err := web.FS.Open("index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, "index.html", fi.ModTime(), f.(io.ReadSeeker))
	})

	return r
}

func handleUnavailable(w http.ResponseWriter, _ *http.Request) {
	utils.RespondError(w, http.StatusServiceUnavailable, "chat provider unavailable")
}
