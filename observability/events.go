package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"liqmine/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted module events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liqmine",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of module events segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record increments the counter for an event type.
func (m *eventMetrics) Record(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
}

// MeteredEmitter wraps an event emitter, counting every event before
// forwarding it.
type MeteredEmitter struct {
	next events.Emitter
}

// NewMeteredEmitter wraps next with event metrics. A nil next drops events
// after counting them.
func NewMeteredEmitter(next events.Emitter) *MeteredEmitter {
	return &MeteredEmitter{next: next}
}

// Emit counts the event and forwards it to the wrapped emitter.
func (m *MeteredEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	Events().Record(evt.EventType())
	if m.next != nil {
		m.next.Emit(evt)
	}
}
