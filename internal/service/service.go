package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/autolink/autolink/internal/cache"
	"github.com/autolink/autolink/internal/config"
	"github.com/autolink/autolink/internal/logging"
	"github.com/autolink/autolink/internal/observability"
	"github.com/autolink/autolink/internal/patterns"
	"github.com/autolink/autolink/internal/ratelimit"
	"github.com/autolink/autolink/internal/scanner"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	SourceHTTP      = "http"
	SourceWebsocket = "websocket"

	// Room for the JSON envelope around the text.
	envelopeBytes = 4096
)

// ScanRequest is the wire form of a scan. Missing categories or pattern fall
// back to the configured ones. An explicit empty list scans nothing and an
// explicit empty pattern clears the configured one.
type ScanRequest struct {
	Text          string    `json:"text"`
	Categories    *[]string `json:"categories,omitempty"`
	CustomPattern *string   `json:"custom_pattern,omitempty"`
}

// decodeScanRequest reads exactly one ScanRequest and rejects unknown fields.
func decodeScanRequest(r io.Reader) (ScanRequest, error) {
	var req ScanRequest
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return ScanRequest{}, err
	}
	return req, nil
}

type ScanResponse struct {
	RequestID   string               `json:"request_id"`
	Items       []scanner.Item       `json:"items"`
	Diagnostics []scanner.Diagnostic `json:"diagnostics,omitempty"`
	Cached      bool                 `json:"cached"`
}

type errorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

type requestError struct {
	status      int
	msg         string
	rateLimited bool
}

func (e *requestError) Error() string {
	return e.msg
}

type Service struct {
	settings atomic.Pointer[Settings]
	router   *mux.Router
	limiter  *ratelimit.Limiter
	cache    cache.Store
	scanLog  *logging.ScanLogger
	metrics  *observability.Metrics
	logger   *logging.Logger
}

func New(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Service{
		router:  mux.NewRouter(),
		limiter: ratelimit.NewLimiter(),
		cache:   cache.Nop{},
		logger:  logger.WithComponent("service"),
	}
	s.settings.Store(settings)
	s.setupRoutes()

	return s, nil
}

func (s *Service) SetScanLogger(l *logging.ScanLogger) {
	s.scanLog = l
}

func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

func (s *Service) SetCache(c cache.Store) {
	if c == nil {
		c = cache.Nop{}
	}
	s.cache = c
}

// Reload swaps the scan settings. In-flight scans finish with the settings
// they started with.
func (s *Service) Reload(cfg *config.Config) error {
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return err
	}
	s.settings.Store(settings)
	s.logger.Info("Scan settings reloaded",
		zap.Int("categories", len(settings.Categories)),
		zap.Bool("custom_pattern", settings.Registry.CustomPattern() != ""),
	)
	return nil
}

func (s *Service) Settings() *Settings {
	return s.settings.Load()
}

// PruneLimiter drops idle rate limit buckets until ctx is done.
func (s *Service) PruneLimiter(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.limiter.Prune(now)
		}
	}
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// scan runs one request end to end and always writes a scan record.
func (s *Service) scan(ctx context.Context, req ScanRequest, source, clientIP string) (ScanResponse, error) {
	start := time.Now()
	settings := s.settings.Load()
	resp := ScanResponse{RequestID: uuid.NewString(), Items: []scanner.Item{}}
	record := logging.ScanRecord{
		Timestamp: start.UTC(),
		RequestID: resp.RequestID,
		ClientIP:  clientIP,
		Source:    source,
		TextBytes: len(req.Text),
	}

	result, cached, err := s.run(ctx, settings, req, clientIP, start, &record)
	if err != nil {
		var rerr *requestError
		record.Outcome = logging.OutcomeRejected
		record.StatusCode = http.StatusInternalServerError
		if errors.As(err, &rerr) {
			record.StatusCode = rerr.status
			if rerr.rateLimited {
				record.Outcome = logging.OutcomeRateLimited
			}
		}
		s.writeRecord(record, start)
		return resp, err
	}

	if result.Items != nil {
		resp.Items = result.Items
	}
	resp.Diagnostics = result.Diagnostics
	resp.Cached = cached

	record.Outcome = logging.OutcomeOK
	record.StatusCode = http.StatusOK
	record.CacheHit = cached
	record.Counts = make(map[string]int)
	for category, count := range result.Counts() {
		record.Counts[string(category)] = count
	}
	for _, d := range result.Diagnostics {
		record.Diagnostics = append(record.Diagnostics, d.Code)
	}
	s.writeRecord(record, start)

	return resp, nil
}

func (s *Service) run(ctx context.Context, settings *Settings, req ScanRequest, clientIP string, now time.Time, record *logging.ScanRecord) (scanner.Result, bool, error) {
	rl := settings.RateLimit
	if rl.Enabled && !s.limiter.Allow(clientIP, rl.RPS, rl.Burst, now) {
		return scanner.Result{}, false, &requestError{status: rateLimitStatus(rl.StatusCode), msg: "rate limit exceeded", rateLimited: true}
	}

	if int64(len(req.Text)) > settings.MaxTextBytes {
		return scanner.Result{}, false, &requestError{
			status: http.StatusRequestEntityTooLarge,
			msg:    fmt.Sprintf("text exceeds %d bytes", settings.MaxTextBytes),
		}
	}

	categories := settings.Categories
	if req.Categories != nil {
		parsed, err := patterns.ParseCategories(*req.Categories)
		if err != nil {
			return scanner.Result{}, false, &requestError{status: http.StatusBadRequest, msg: err.Error()}
		}
		categories = parsed
	}
	for _, c := range categories {
		record.Categories = append(record.Categories, string(c))
	}

	registry := settings.Registry
	if req.CustomPattern != nil {
		registry = patterns.NewRegistry(*req.CustomPattern)
	}

	key := cache.Key(req.Text, categories, registry.CustomPattern())
	result, cached := s.lookup(ctx, key)
	if !cached {
		result = scanner.New(registry).Scan(req.Text, categories)
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("Cache store failed", zap.Error(err))
		}
	}

	logger := s.logger.WithRequestID(record.RequestID)
	for _, d := range result.Diagnostics {
		logger.Warn("Scan diagnostic",
			zap.String("category", string(d.Category)),
			zap.String("code", d.Code),
			zap.String("message", d.Message),
			zap.Bool("cached", cached),
		)
	}
	return result, cached, nil
}

func (s *Service) lookup(ctx context.Context, key string) (scanner.Result, bool) {
	result, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache lookup failed", zap.Error(err))
		return scanner.Result{}, false
	}
	if ok {
		return result, true
	}
	if _, isNop := s.cache.(cache.Nop); !isNop {
		s.metrics.ObserveCacheMiss()
	}
	return scanner.Result{}, false
}

func (s *Service) writeRecord(record logging.ScanRecord, start time.Time) {
	record.DurationUS = time.Since(start).Microseconds()
	if s.scanLog != nil {
		if err := s.scanLog.Write(record); err != nil {
			s.logger.Error("Scan log write failed", zap.Error(err))
		}
	}
	s.metrics.Observe(record)
}

func rateLimitStatus(code int) int {
	if code <= 0 {
		return http.StatusTooManyRequests
	}
	return code
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
