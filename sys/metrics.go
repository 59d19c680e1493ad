package sys

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's collectors on a private registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	Triggers              *prometheus.CounterVec
	ThreadsCreated        *prometheus.CounterVec
	ThreadFailures        *prometheus.CounterVec
	PermissionDeniedTotal *prometheus.CounterVec
	Resets                *prometheus.CounterVec
	StoreSaves            *prometheus.CounterVec
	StoreSaveSeconds      prometheus.Histogram
	Commands              *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_triggers_total",
			Help: "Trigger phrase messages by outcome.",
		}, []string{"outcome"}),
		ThreadsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_threads_created_total",
			Help: "Threads opened by threadline, by category.",
		}, []string{"category"}),
		ThreadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_thread_failures_total",
			Help: "Thread creation attempts rejected by Discord, by category.",
		}, []string{"category"}),
		PermissionDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_permission_denied_total",
			Help: "Actions skipped for lack of an explicit channel grant.",
		}, []string{"capability"}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_resets_total",
			Help: "Completed scheduled resets.",
		}, []string{"kind"}),
		StoreSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_store_saves_total",
			Help: "State document writes by result.",
		}, []string{"result"}),
		StoreSaveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "akeome_store_save_duration_seconds",
			Help:    "Time spent writing the state document.",
			Buckets: prometheus.DefBuckets,
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akeome_commands_total",
			Help: "Slash command invocations.",
		}, []string{"command"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Triggers,
		m.ThreadsCreated,
		m.ThreadFailures,
		m.PermissionDeniedTotal,
		m.Resets,
		m.StoreSaves,
		m.StoreSaveSeconds,
		m.Commands,
	)
	return m
}

func (m *Metrics) Trigger(firstOverall, firstForUser bool) {
	if m == nil {
		return
	}
	switch {
	case firstOverall:
		m.Triggers.WithLabelValues("winner").Inc()
	case firstForUser:
		m.Triggers.WithLabelValues("recorded").Inc()
	default:
		m.Triggers.WithLabelValues("repeat").Inc()
	}
}

func (m *Metrics) ThreadCreated(category string) {
	if m != nil {
		m.ThreadsCreated.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) ThreadFailed(category string) {
	if m != nil {
		m.ThreadFailures.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) PermissionDenied(capability string) {
	if m != nil {
		m.PermissionDeniedTotal.WithLabelValues(capability).Inc()
	}
}

func (m *Metrics) Reset(kind string) {
	if m != nil {
		m.Resets.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Command(name string) {
	if m != nil {
		m.Commands.WithLabelValues(name).Inc()
	}
}

// StoreSave records one write attempt.
func (m *Metrics) StoreSave(took time.Duration, err error) {
	if m == nil {
		return
	}
	m.StoreSaveSeconds.Observe(took.Seconds())
	if err != nil {
		m.StoreSaves.WithLabelValues("error").Inc()
		return
	}
	m.StoreSaves.WithLabelValues("ok").Inc()
}

// --- HTTP surface ---

// MetricsServer serves /metrics and /healthz.
type MetricsServer struct {
	Router chi.Router
	addr   string
}

// NewMetricsServer wires the routes. health reports whether the bot is connected; a nil
// health always reports ok.
func NewMetricsServer(addr string, m *Metrics, health func() error) *MetricsServer {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{Router: r, addr: addr}
}

// Start serves in the background until ctx ends.
func (s *MetricsServer) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ComponentWarn("metrics", MsgMetricsShutdownFail, err)
		}
	}()

	go func() {
		LogMetrics(MsgMetricsListening, s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ComponentWarn("metrics", MsgMetricsServeFail, err)
		}
	}()
}
