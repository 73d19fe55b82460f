package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"storeviewer/internal/api"
	"storeviewer/internal/config"
	"storeviewer/internal/session"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	storage    api.Store
	sessions   *session.Manager
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, store api.Store, sessions *session.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		storage:  store,
		sessions: sessions,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.handler = api.NewHandler(s.storage, s.sessions, s.logger, s.cfg.Catalog.Path)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)

		r.Get("/reviews", s.handler.ListReviews)
		r.Get("/products", s.handler.ListProducts)
		r.Get("/cart", s.handler.GetCart)
		r.Post("/catalog/import", s.handler.ImportCatalog)
		r.Get("/media/probe", s.handler.ProbeMedia)

		r.Post("/viewer/sessions", s.handler.OpenSession)
		r.Route("/viewer/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handler.GetSession)
			r.Delete("/", s.handler.CloseSession)

			r.Post("/pointer", s.handler.Pointer)
			r.Post("/advance", s.handler.Advance)
			r.Post("/media/advance", s.handler.AdvanceMedia)
			r.Post("/media/select", s.handler.SelectMedia)
			r.Post("/media/error", s.handler.MediaError)
			r.Post("/reactions", s.handler.React)
			r.Post("/cart", s.handler.AddToCart)

			r.Post("/playback/toggle", s.handler.TogglePlay)
			r.Post("/playback/mute", s.handler.ToggleMute)
			r.Post("/playback/seek", s.handler.Seek)
			r.Post("/playback/progress", s.handler.Progress)
			r.Post("/playback/ended", s.handler.Ended)

			r.Get("/notifications", s.handler.Notifications)
		})
	})
}

func (s *Server) SetImporter(importer api.ImporterInterface) {
	s.handler.SetImporter(importer)
}

func (s *Server) SetProber(prober api.ProberInterface) {
	s.handler.SetProber(prober)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.sessions.CloseAll()
	return err
}
