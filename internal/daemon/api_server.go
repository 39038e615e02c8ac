package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/lecture"
	"lectern/internal/logging"
	"lectern/internal/services"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	procSvc *api.ProcessingService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logging.NewComponentLogger(logger, "api"),
		daemon:  d,
		procSvc: api.NewProcessingService(d.store),
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.withRequestID(srv.handleStatus)))
	mux.HandleFunc("/api/units", authMiddleware(token, srv.withRequestID(srv.handleUnits)))
	mux.HandleFunc("/api/units/", authMiddleware(token, srv.withRequestID(srv.handleUnitPath)))
	mux.HandleFunc("/api/callbacks/ingestion", authMiddleware(token, srv.withRequestID(srv.handleIngestionCallback)))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
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

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withRequestID stamps a correlation id on the request context so handler
// logs can be tied together.
func (s *apiServer) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := services.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next(w, r.WithContext(ctx))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	video, transcription, ingestion := s.daemon.orch.ServiceAvailability()
	health, phases, err := s.procSvc.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StateDBPath:  status.StateDBPath,
		LockFilePath: status.LockFilePath,
		Capabilities: api.Capabilities{
			VideoProvider: video,
			Transcription: transcription,
			Ingestion:     ingestion,
		},
		Health: health,
		Phases: phases,
	})
}

func (s *apiServer) handleUnits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		units, err := s.procSvc.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.UnitListResponse{Units: units})
	case http.MethodPost:
		s.handleSaveUnit(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSaveUnit(w http.ResponseWriter, r *http.Request) {
	var req api.UnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LectureID == 0 {
		s.writeError(w, http.StatusBadRequest, "lectureId is required")
		return
	}

	unit := &lecture.Unit{
		ID:                req.ID,
		LectureID:         req.LectureID,
		Title:             req.Title,
		Tutorial:          req.Tutorial,
		VideoSource:       req.VideoSource,
		AttachmentLink:    req.AttachmentLink,
		AttachmentVersion: req.AttachmentVersion,
	}
	ctx := r.Context()
	if err := s.daemon.store.UpsertUnit(ctx, unit); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.daemon.orch.Trigger(ctx, unit); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dto, err := s.procSvc.Describe(ctx, unit.ID)
	if err != nil || dto == nil {
		s.writeError(w, http.StatusInternalServerError, "unit vanished after save")
		return
	}
	s.writeJSON(w, http.StatusOK, api.UnitResponse{Unit: *dto})
}

func (s *apiServer) handleUnitPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/units/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.handleDescribeUnit(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.handleDeleteUnit(w, r, id)
	case action == "trigger" && r.Method == http.MethodPost:
		s.handleTrigger(w, r, id)
	case action == "retry" && r.Method == http.MethodPost:
		s.handleRetry(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		s.handleCancel(w, r, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleDescribeUnit(w http.ResponseWriter, r *http.Request, id int64) {
	dto, err := s.procSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dto == nil {
		s.writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.UnitResponse{Unit: *dto})
}

func (s *apiServer) handleDeleteUnit(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	deleted, err := s.daemon.store.DeleteUnit(ctx, id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	if err := s.daemon.orch.HandleUnitsDeletion(ctx, []int64{id}); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleTrigger(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	unit, err := s.daemon.store.GetUnit(ctx, id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if unit == nil {
		s.writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	if err := s.daemon.orch.Trigger(ctx, unit); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	unit, err := s.daemon.store.GetUnit(ctx, id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if unit == nil {
		s.writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	if err := s.daemon.orch.Retry(ctx, unit); err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.daemon.orch.Cancel(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleIngestionCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var callback api.IngestionCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if callback.UnitID <= 0 || strings.TrimSpace(callback.JobToken) == "" {
		s.writeError(w, http.StatusBadRequest, "unitId and jobToken are required")
		return
	}

	err := s.daemon.orch.HandleIngestionComplete(r.Context(), callback.UnitID, callback.JobToken, callback.Success, callback.Error)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
