package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tauraamui/archbooth/pkg/log"
)

const namespace = "archbooth"

// Metrics counts what the kiosk pipeline does. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	skippedWakes prometheus.Counter
	droppedMasks prometheus.Counter
	recordings   *prometheus.CounterVec
	uploadErrors prometheus.Counter
	composing    prometheus.Gauge
}

func New() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Composite ticks run by the frame scheduler.",
		}),
		skippedWakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "wakes_skipped_total",
			Help: "Scheduler wakes skipped because the frame interval had not elapsed.",
		}),
		droppedMasks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "segmentation_frames_dropped_total",
			Help: "Frames not submitted for segmentation because one was in flight.",
		}),
		recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "recordings_total",
			Help: "Recordings by outcome.",
		}, []string{"outcome"}),
		uploadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "upload_failures_total",
			Help: "Uploads that failed.",
		}),
		composing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "session_composing",
			Help: "1 while the session has produced a composite.",
		}),
	}
	m.registry.MustRegister(m.ticks, m.skippedWakes, m.droppedMasks, m.recordings, m.uploadErrors, m.composing)
	return &m
}

func (m *Metrics) Tick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) SkippedWake() {
	if m != nil {
		m.skippedWakes.Inc()
	}
}

func (m *Metrics) DroppedMask() {
	if m != nil {
		m.droppedMasks.Inc()
	}
}

func (m *Metrics) Recording(outcome string) {
	if m != nil {
		m.recordings.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) UploadFailed() {
	if m != nil {
		m.uploadErrors.Inc()
	}
}

func (m *Metrics) Composing(on bool) {
	if m == nil {
		return
	}
	if on {
		m.composing.Set(1)
		return
	}
	m.composing.Set(0)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server exposes the metrics on /metrics.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

func (s *Server) Run() {
	log.Info("Starting monitoring server at %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Monitoring server stopped: %v", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down monitoring server")
	return s.srv.Shutdown(ctx)
}
