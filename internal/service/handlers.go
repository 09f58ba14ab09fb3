package service

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/autolink/autolink/internal/patterns"
	"go.uber.org/zap"
)

func (s *Service) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Service) handleCategories(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Load()
	all := make([]string, 0, len(patterns.Categories))
	for _, c := range patterns.Categories {
		all = append(all, string(c))
	}
	enabled := make([]string, 0, len(settings.Categories))
	for _, c := range settings.Categories {
		enabled = append(enabled, string(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":      all,
		"default_enabled": enabled,
		"custom_pattern":  settings.Registry.CustomPattern(),
	})
}

func (s *Service) handleScan(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Load()
	r.Body = http.MaxBytesReader(w, r.Body, settings.MaxTextBytes*2+envelopeBytes)

	req, err := decodeScanRequest(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	resp, err := s.scan(r.Context(), req, SourceHTTP, clientIP(r))
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{RequestID: resp.RequestID, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status_code", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func statusFor(err error) int {
	var rerr *requestError
	if errors.As(err, &rerr) {
		return rerr.status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
