package classpath

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("classpath.index")

const (
	metricsNamespace = "classpath"
	metricsSubsystem = "index"
)

// Entry kinds used as metric labels.
const (
	kindDirectory = "directory"
	kindArchive   = "archive"
	kindInvalid   = "invalid"
)

// Metrics exposes scan counters. A nil *Metrics records nothing.
type Metrics struct {
	EntryScans    *prometheus.CounterVec
	ClassesMapped prometheus.Counter
	ScanDuration  *prometheus.HistogramVec
}

// NewMetrics registers the index collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntryScans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "entry_scans_total",
			Help:      "Path entries scanned by kind and result",
		}, []string{"kind", "result"}),
		ClassesMapped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "classes_mapped_total",
			Help:      "Class names folded into package maps",
		}),
		ScanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "entry_scan_duration_seconds",
			Help:      "Time spent scanning one path entry",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeScan(kind string, d time.Duration, classes int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.EntryScans.WithLabelValues(kind, result).Inc()
	if kind != kindInvalid {
		m.ScanDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
	if err == nil {
		m.ClassesMapped.Add(float64(classes))
	}
}

func startEntrySpan(ctx context.Context, idx, entry string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Index.mapEntry",
		trace.WithAttributes(
			attribute.String("classpath.name", idx),
			attribute.String("classpath.entry", entry),
		),
	)
}

func endEntrySpan(span trace.Span, kind string, classes int, err error) {
	span.SetAttributes(
		attribute.String("classpath.entry_kind", kind),
		attribute.Int("classpath.class_count", classes),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
