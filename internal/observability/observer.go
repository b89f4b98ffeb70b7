package observability

import (
	"log/slog"

	"github.com/couchcryptid/stormview/internal/domain"
)

// LogObserver writes engine events to a structured logger. Stale drops and
// selections are debug-level; failures are warnings.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an observer that logs every event.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Observe(e domain.Event) {
	attrs := []any{
		"subject", e.Subject,
		"slot", e.Slot,
		"seq", e.Seq,
	}
	switch e.Type {
	case domain.EventSelection:
		o.logger.Debug("selection changed", attrs...)
	case domain.EventStale, domain.EventStaleDetail:
		o.logger.Debug("stale result dropped", append(attrs, "event", e.Type)...)
	case domain.EventResolved, domain.EventDetail:
		attrs = append(attrs, "phase", e.Phase, "images", e.Images, "elapsed", e.Elapsed)
		if e.Phase == domain.PhaseFailed {
			o.logger.Warn(string(e.Type)+" failed", append(attrs, "kind", e.Kind, "reason", e.Reason)...)
			return
		}
		o.logger.Info(string(e.Type), attrs...)
	case domain.EventImage:
		if e.Phase == domain.PhaseFailed {
			o.logger.Warn("image broken", append(attrs, "reason", e.Reason)...)
			return
		}
		o.logger.Debug("image loaded", attrs...)
	}
}

// MetricsObserver maps engine events onto Prometheus metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records events as metrics.
func NewMetricsObserver(metrics *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

func (o *MetricsObserver) Observe(e domain.Event) {
	switch e.Type {
	case domain.EventSelection:
		o.metrics.Selections.WithLabelValues(subjectLabel(e), slotLabel(e)).Inc()
	case domain.EventStale:
		o.metrics.StaleResults.WithLabelValues("imagery").Inc()
	case domain.EventStaleDetail:
		o.metrics.StaleResults.WithLabelValues("detail").Inc()
	case domain.EventResolved:
		o.metrics.Resolutions.WithLabelValues(resolutionOutcome(e)).Inc()
		o.metrics.ResolveDuration.Observe(e.Elapsed.Seconds())
	case domain.EventDetail:
		o.metrics.DetailFetches.WithLabelValues(string(e.Phase)).Inc()
	case domain.EventImage:
		outcome := "loaded"
		if e.Phase == domain.PhaseFailed {
			outcome = "broken"
		}
		o.metrics.ImageLoads.WithLabelValues(outcome).Inc()
	}
}

func resolutionOutcome(e domain.Event) string {
	switch {
	case e.Phase == domain.PhaseFailed:
		return "failed"
	case e.Images > 0:
		return "ready"
	case e.Reason == domain.NoImageryMessage:
		return "no_imagery"
	default:
		return "empty"
	}
}

func subjectLabel(e domain.Event) string {
	if e.Subject == domain.OverviewID {
		return "overview"
	}
	return "storm"
}

func slotLabel(e domain.Event) string {
	if e.Slot == "latest" {
		return "latest"
	}
	return "historic"
}
