package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/config"
	"github.com/snarg/ttscribe/internal/metrics"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Scraper     ChannelScraper
	Transcriber Transcriber
	Records     RecordStore
	Model       ModelReporter
	Version     string
	StartTime   time.Time
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	status := NewStatusHandler(deps.Version, deps.StartTime, deps.Model)
	r.Get("/", status.Root)
	r.Get("/health", status.Health)

	channels := NewChannelsHandler(deps.Scraper, cfg.StorageBaseURL, cfg.MaxVideosLimit)
	videos := NewVideosHandler(cfg.UploadDir, cfg.StorageBaseURL)
	transcriptions := NewTranscriptionsHandler(deps.Transcriber, deps.Records, cfg.UploadDir, cfg.StorageBaseURL)

	r.Route("/api/v1", func(r chi.Router) {
		channels.Routes(r)
		videos.Routes(r)
		transcriptions.Routes(r)
	})

	// Downloaded media and persisted transcriptions served as static files.
	fileServer := http.StripPrefix("/storage/", http.FileServer(http.Dir(cfg.UploadDir)))
	r.Get("/storage/*", fileServer.ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
