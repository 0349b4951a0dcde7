package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Memora/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/config"
	"github.com/markdave123-py/Memora/internal/core/pipeline"
	"github.com/markdave123-py/Memora/internal/core/search"
	"github.com/markdave123-py/Memora/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	users *services.UserService,
	documents *services.DocumentService,
	ingest *services.IngestService,
	chat *services.ChatService,
	searcher *search.Service,
	pipe *pipeline.Pipeline,
) *Server {
	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret)
	ingestHandler := handlers.NewIngestHandler(ingest)
	taskHandler := handlers.NewTaskHandler(pipe)
	docHandler := handlers.NewDocumentHandler(documents, ingest)
	searchHandler := handlers.NewSearchHandler(searcher)
	chatHandler := handlers.NewChatHandler(chat)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.NewJWTMiddleware(cfg.JWTSecret))

			protected.Post("/ingest", ingestHandler.Ingest)
			protected.Post("/documents/upload", docHandler.Upload)

			protected.Get("/tasks/{taskID}", taskHandler.GetStatus)
			protected.Delete("/tasks/{taskID}", taskHandler.Cancel)
			protected.Get("/pipeline/metrics", taskHandler.Metrics)

			protected.Get("/documents", docHandler.List)
			protected.Get("/documents/{documentID}", docHandler.Get)
			protected.Get("/documents/{documentID}/chunks", docHandler.Chunks)
			protected.Delete("/documents/{documentID}", docHandler.Delete)

			protected.Post("/search", searchHandler.Search)

			protected.Post("/chat", chatHandler.Chat)
			protected.Get("/chat/sessions", chatHandler.ListSessions)
			protected.Get("/chat/sessions/{sessionID}/messages", chatHandler.ListMessages)
			protected.Delete("/chat/sessions/{sessionID}", chatHandler.DeleteSession)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
