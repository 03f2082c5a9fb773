package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain/ports/adapter"
	"video-inspection-console/internal/infra/logging"
	"video-inspection-console/internal/usecase"
)

// Gateway is what the web surface needs from the backend client beyond
// the tracker use cases: session bootstrap and dashboard passthroughs.
type Gateway interface {
	Login(ctx context.Context, username, password string) (role string, err error)
	SystemStatus(ctx context.Context) (json.RawMessage, error)
	RetrieveFolders(ctx context.Context, c adapter.RetrieveCriteria) ([]adapter.VideoFolder, error)
	VideoURL(ctx context.Context, storageKey string) (string, error)
}

// Server exposes the trackers' projections and the four mutating
// operations to view surfaces over HTTP. Views never poll the backend
// themselves and never see task ids beyond the projection.
type Server struct {
	taskUC   usecase.TaskTrackerUseCase
	uploadUC usecase.UploadTrackerUseCase
	gateway  Gateway
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	taskUC usecase.TaskTrackerUseCase,
	uploadUC usecase.UploadTrackerUseCase,
	gateway Gateway,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		taskUC:   taskUC,
		uploadUC: uploadUC,
		gateway:  gateway,
		auth:     auth,
		log:      &compLog,
	}
}

// Router builds the chi router for the operator API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/api/v1/logout", s.handleLogout)

		r.Route("/api/v1/extraction", func(r chi.Router) {
			r.Get("/", s.handleExtractionStatus)
			r.Post("/", s.handleExtractionSubmit)
			r.Delete("/", s.handleExtractionReset)
		})

		r.Route("/api/v1/uploads", func(r chi.Router) {
			r.Get("/", s.handleUploadsList)
			r.Post("/", s.handleUploadStart)
			r.Delete("/{uploadID}", s.handleUploadCancel)
		})

		r.Post("/api/v1/folders/search", s.handleFolderSearch)
		r.Post("/api/v1/videos/url", s.handleVideoURL)
		r.Get("/api/v1/system-status", s.handleSystemStatus)
	})

	return r
}

// traceMiddleware stamps the chi request id onto the context as the
// trace id and logs each request with it.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware validates the console session JWT.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}
