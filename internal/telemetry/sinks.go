package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// LogSink renders events as structured zap log lines. Kept deliberately
// dumb: it never branches on ErrorCause to change behavior, only to pick a
// log field, per the observational-only contract on ErrorCause.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("telemetry")}
}

func (s *LogSink) Handle(ev Event) {
	switch ev.Kind {
	case KindFetch:
		f := ev.Fetch
		s.log.Debug("fetch",
			zap.String("url", f.FetchURL),
			zap.Int("status", f.HTTPStatus),
			zap.Duration("duration", f.Duration),
			zap.String("content_type", f.ContentType),
			zap.Int("retry_count", f.RetryCount),
			zap.Int("depth", f.CrawlDepth),
		)
	case KindError:
		e := ev.Err
		fields := []zap.Field{
			zap.String("package", e.PackageName),
			zap.String("action", e.Action),
			zap.String("cause", e.Cause.String()),
			zap.String("error", e.ErrorString),
		}
		for _, a := range e.Attrs {
			fields = append(fields, zap.String(string(a.Key), a.Value))
		}
		s.log.Warn("stage error", fields...)
	case KindArtifact:
		a := ev.Artifact
		s.log.Info("artifact", zap.String("kind", string(a.Kind)), zap.String("path", a.Path))
	case KindQueue:
		q := ev.Queue
		s.log.Debug("queue", zap.String("url", q.URL), zap.String("host", q.Host),
			zap.Int("depth", q.Depth), zap.String("outcome", string(q.Outcome)), zap.String("reason", q.Reason))
	case KindStats:
		st := ev.Stats
		s.log.Info("crawl finished",
			zap.Int("total_pages", st.TotalPages),
			zap.Int("total_errors", st.TotalErrors),
			zap.Int("total_assets", st.TotalAssets),
			zap.Int64("duration_ms", st.DurationMs),
			zap.Int("places_found", st.PlacesFound),
			zap.Int("hubs_detected", st.HubsDetected),
		)
	}
}

// MetricsSink maps events onto a small set of Prometheus collectors.
type MetricsSink struct {
	fetchTotal       *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
	errorsTotal      *prometheus.CounterVec
	queueOutcomes    *prometheus.CounterVec
	droppedTelemetry prometheus.Counter
}

func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscrawl_fetch_total",
			Help: "Total fetch attempts by HTTP status class.",
		}, []string{"status_class"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newscrawl_fetch_duration_seconds",
			Help:    "Fetch duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscrawl_stage_errors_total",
			Help: "Stage-local errors by package and cause.",
		}, []string{"package", "cause"}),
		queueOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscrawl_queue_outcomes_total",
			Help: "Frontier admission outcomes.",
		}, []string{"outcome"}),
		droppedTelemetry: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscrawl_telemetry_dropped_total",
			Help: "Telemetry events dropped by the bounded bus.",
		}),
	}
	reg.MustRegister(s.fetchTotal, s.fetchDuration, s.errorsTotal, s.queueOutcomes, s.droppedTelemetry)
	return s
}

func (s *MetricsSink) Handle(ev Event) {
	switch ev.Kind {
	case KindFetch:
		s.fetchTotal.WithLabelValues(statusClass(ev.Fetch.HTTPStatus)).Inc()
		s.fetchDuration.Observe(ev.Fetch.Duration.Seconds())
	case KindError:
		s.errorsTotal.WithLabelValues(ev.Err.PackageName, ev.Err.Cause.String()).Inc()
	case KindQueue:
		s.queueOutcomes.WithLabelValues(string(ev.Queue.Outcome)).Inc()
	}
}

// ObserveDropped records the bus's own drop counter as a gauge-like delta.
func (s *MetricsSink) ObserveDropped(n uint64) {
	s.droppedTelemetry.Add(float64(n))
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "none"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
