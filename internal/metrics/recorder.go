// Package metrics exposes Prometheus counters for the suggestion and
// assignment pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "receipts"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder records pipeline metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	suggestions      *prometheus.CounterVec
	suggestDuration  prometheus.Histogram
	assignmentWrites *prometheus.CounterVec
	bulkItems        *prometheus.CounterVec
	bulkDuration     prometheus.Histogram
	reviewQueue      *prometheus.GaugeVec
	importedItems    *prometheus.CounterVec
}

// NewRecorder registers the pipeline metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		suggestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suggestions_total",
				Help:      "Suggestions returned for line items, by origin",
			},
			[]string{"origin"},
		),
		suggestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "suggest_duration_seconds",
				Help:      "Time to compute suggestions for one line item",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
		),
		assignmentWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assignment_writes_total",
				Help:      "Category assignment upserts, by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		bulkItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_items_total",
				Help:      "Items processed by bulk categorize, by outcome",
			},
			[]string{"outcome"},
		),
		bulkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bulk_duration_seconds",
				Help:      "Wall time of one bulk categorize operation",
				Buckets:   prometheus.DefBuckets,
			},
		),
		reviewQueue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "review_queue_items",
				Help:      "Items in the most recently built review queue, by reason",
			},
			[]string{"reason"},
		),
		importedItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imported_items_total",
				Help:      "Line items imported from extraction drafts, by how they were categorized",
			},
			[]string{"result"},
		),
	}
}

// SuggestionsServed counts n suggestions of one origin.
func (r *Recorder) SuggestionsServed(origin string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.suggestions.WithLabelValues(origin).Add(float64(n))
}

// SuggestDuration observes the time taken to suggest for one item.
func (r *Recorder) SuggestDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.suggestDuration.Observe(d.Seconds())
}

// AssignmentWrite counts one upsert attempt.
func (r *Recorder) AssignmentWrite(source string, ok bool) {
	if r == nil {
		return
	}
	r.assignmentWrites.WithLabelValues(source, outcome(ok)).Inc()
}

// BulkCompleted records the result of a bulk categorize run.
func (r *Recorder) BulkCompleted(succeeded, failed int, d time.Duration) {
	if r == nil {
		return
	}
	r.bulkItems.WithLabelValues(OutcomeSuccess).Add(float64(succeeded))
	r.bulkItems.WithLabelValues(OutcomeFailure).Add(float64(failed))
	r.bulkDuration.Observe(d.Seconds())
}

// ReviewQueueSize sets the queue gauge for one reason.
func (r *Recorder) ReviewQueueSize(reason string, n int) {
	if r == nil {
		return
	}
	r.reviewQueue.WithLabelValues(reason).Set(float64(n))
}

// ItemImported counts one imported line item by result.
func (r *Recorder) ItemImported(result string) {
	if r == nil {
		return
	}
	r.importedItems.WithLabelValues(result).Inc()
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
