package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"claimcheck/internal/config"
	"claimcheck/internal/logging"
	"claimcheck/internal/services"
	"claimcheck/internal/storage"
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	maxUpload int64
	maxImages int

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.API.Bind),
		logger:    logger,
		daemon:    d,
		maxUpload: cfg.MaxUploadBytes(),
		maxImages: cfg.API.MaxImages,
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/claims/process", srv.handleProcess)
	api.HandleFunc("POST /api/documents/extract", srv.handleExtract)
	api.HandleFunc("POST /api/images/verify", srv.handleVerifyImages)
	api.HandleFunc("GET /api/claims", srv.handleListClaims)
	api.HandleFunc("GET /api/claims/ids", srv.handleClaimIDs)
	api.HandleFunc("GET /api/claims/{id}", srv.handleGetClaim)
	api.HandleFunc("PUT /api/claims/{id}/status", srv.handleUpdateStatus)
	api.HandleFunc("DELETE /api/claims/{id}", srv.handleDeleteClaim)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.Handle("/api/", authMiddleware(cfg.API.Token, api))
	if fs, ok := d.deps.Evidence.(*storage.Filesystem); ok {
		mux.Handle("GET /evidence/", http.StripPrefix("/evidence/", http.FileServer(http.Dir(fs.Root()))))
	}
	srv.handler = srv.withRequestID(mux)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api.bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_error"),
				logging.String(logging.FieldErrorHint, "check api.bind"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// withRequestID tags each request with a correlation id, honouring a
// caller-supplied X-Request-ID.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps error markers onto status codes. notFound is the
// user-facing message for ErrNotFound.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrExtraction), errors.Is(err, services.ErrUnrecognizedDocument):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrOracleCall), errors.Is(err, services.ErrMalformedOracleResponse):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, services.ErrConfiguration):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "request failed", "request_failed",
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
