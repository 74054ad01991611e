// Package metrics exports timeline store activity as Prometheus metrics.
//
// Metrics:
//   - rewind_store_appends_total: committed appends
//   - rewind_store_cursor_moves_total{kind}: undo, redo, navigate, restore
//   - rewind_store_compactions_total: retention compactions
//   - rewind_store_dropped_events_total: events removed by compaction
//   - rewind_store_reducer_failures_total: appends rejected by a reducer panic
//   - rewind_store_log_length: events in the log after the last change
//   - rewind_store_cursor_position: cursor after the last change
//
// All metric operations are thread-safe via Prometheus's internal locking.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/rewind/internal/timeline"
)

const (
	metricsNamespace = "rewind"
	storeSubsystem   = "store"
)

// Observer implements timeline.Observer on top of Prometheus collectors.
type Observer struct {
	Appends         prometheus.Counter
	CursorMoves     *prometheus.CounterVec
	Compactions     prometheus.Counter
	DroppedEvents   prometheus.Counter
	ReducerFailures prometheus.Counter
	LogLength       prometheus.Gauge
	CursorPosition  prometheus.Gauge
}

var _ timeline.Observer = (*Observer)(nil)

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics.
func New(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		Appends: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "appends_total",
			Help:      "Total number of committed appends",
		}),
		CursorMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "cursor_moves_total",
			Help:      "Total number of cursor moves by kind",
		}, []string{"kind"}),
		Compactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "compactions_total",
			Help:      "Total number of retention compactions",
		}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "dropped_events_total",
			Help:      "Total number of events removed by compaction",
		}),
		ReducerFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "reducer_failures_total",
			Help:      "Total number of appends rejected because the reducer panicked",
		}),
		LogLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "log_length",
			Help:      "Number of events in the log",
		}),
		CursorPosition: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "cursor_position",
			Help:      "Current cursor position",
		}),
	}
}

// Appended implements timeline.Observer.
func (o *Observer) Appended(position, length int) {
	o.Appends.Inc()
	o.LogLength.Set(float64(length))
	o.CursorPosition.Set(float64(position))
}

// Moved implements timeline.Observer.
func (o *Observer) Moved(move timeline.CursorMove) {
	o.CursorMoves.WithLabelValues(string(move.Kind)).Inc()
	o.CursorPosition.Set(float64(move.To))
}

// Compacted implements timeline.Observer.
func (o *Observer) Compacted(dropped, remaining int) {
	o.Compactions.Inc()
	o.DroppedEvents.Add(float64(dropped))
	o.LogLength.Set(float64(remaining))
}

// ReducerFailed implements timeline.Observer.
func (o *Observer) ReducerFailed(error) {
	o.ReducerFailures.Inc()
}
