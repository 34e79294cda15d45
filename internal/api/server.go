package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/utils/logger"
	"github.com/livp123/logsift/internal/version"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logsift_api_requests_total",
			Help: "API requests by path and response code",
		},
		[]string{"path", "code"},
	)
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logsift_api_request_duration_seconds",
			Help:    "API request latency by path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// Server is the scoring API daemon. It serves the historical POST /method
// interface plus liveness and Prometheus endpoints.
// Server 是评分 API 守护进程，提供历史 POST /method 接口以及存活探针和
// Prometheus 端点。
type Server struct {
	cfg     *config.Config
	srv     *http.Server
	handler http.Handler
	started time.Time

	// now supplies the clock for admin token derivation.
	now func() time.Time
}

// NewServer builds the scoring API server from the loaded configuration.
// NewServer 根据已加载的配置构建评分 API 服务器。
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:     cfg,
		started: time.Now(),
		now:     time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/method", s.handleMethod)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleNotFound)
	s.handler = s.withRequestLog(mux)

	s.srv = &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the HTTP surface, primarily for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until the listener fails or Shutdown is called.
// Start 启动服务并阻塞，直到监听失败或 Shutdown 被调用。
func (s *Server) Start() error {
	logger.Get(context.Background()).Infof("🚀 Scoring API listening on %s", s.cfg.API.Listen)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// statusRecorder captures the response code for request metrics and logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricPath collapses unrouted paths so label cardinality stays bounded.
func metricPath(p string) string {
	switch p {
	case "/method", "/healthz", "/metrics":
		return p
	}
	return "other"
}

// withRequestLog tags every request with an id (X-Request-Id header or a
// fresh uuid), scopes the logger to it, counts the request and recovers
// panics into 500 envelopes.
// withRequestLog 为每个请求打上请求 ID，绑定请求级日志器，统计请求指标，
// 并将 panic 恢复为 500 信封。
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)

		log := logger.Get(r.Context()).With("request_id", id)
		ctx := logger.WithContext(r.Context(), log)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				log.Errorw("❌ Panic while serving request", "panic", p, "path", r.URL.Path)
				writeEnvelope(rec, http.StatusInternalServerError, nil)
			}
			path := metricPath(r.URL.Path)
			httpRequests.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
			httpDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
			log.Debugw("Request served", "method", r.Method, "path", r.URL.Path,
				"status", rec.status, "elapsed", time.Since(start))
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// handleNotFound answers unrouted paths with the error envelope.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusNotFound, nil)
}
