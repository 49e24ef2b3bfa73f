package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain metrics for the predictor, planner and registry packages.
// Grouped in their own file since they grew past the teacher's original
// HTTP-only metrics set.
var (
	predictorBufferLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_predictor_buffer_length",
		Help: "Current number of frames held in the rolling prediction buffer.",
	})

	predictorShiftEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_predictor_shift_events_total",
		Help: "Total number of buffer shift events (one consumed frame each).",
	})

	plannerWorkerErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_planner_worker_errors_total",
		Help: "Total number of recovered panics in planner worker goroutines.",
	})

	plannerBatchesDispatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_planner_batches_dispatched_total",
		Help: "Total number of candidate batches dispatched to planner workers.",
	})

	plannerGenerationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_planner_generations_total",
		Help: "Total number of transfer searches started (one per generation bump).",
	})

	plannerAcceptableFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_planner_acceptable_found_total",
		Help: "Total number of acceptable transfer trajectories found across all searches.",
	})

	plannerSearchDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitsim_planner_search_duration_seconds",
		Help:    "Wall-clock duration of a transfer search from StartSearch to exhaustion.",
		Buckets: prometheus.DefBuckets,
	})

	registryPlansScheduledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_registry_plans_scheduled_total",
		Help: "Total number of plans that reached their launch trigger and were scheduled.",
	})

	registryPlansExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_registry_plans_expired_total",
		Help: "Total number of plans evicted from the registry before launch.",
	})
)

func init() {
	prometheus.MustRegister(
		predictorBufferLength,
		predictorShiftEventsTotal,
		plannerWorkerErrorsTotal,
		plannerBatchesDispatchedTotal,
		plannerGenerationsTotal,
		plannerAcceptableFoundTotal,
		plannerSearchDurationSeconds,
		registryPlansScheduledTotal,
		registryPlansExpiredTotal,
	)
}

// SetPredictorBufferLength records the buffer's current frame count.
func SetPredictorBufferLength(n int) { predictorBufferLength.Set(float64(n)) }

// IncPredictorShiftEvents counts one buffer shift.
func IncPredictorShiftEvents() { predictorShiftEventsTotal.Inc() }

// IncPlannerWorkerErrors counts one recovered worker panic.
func IncPlannerWorkerErrors() { plannerWorkerErrorsTotal.Inc() }

// IncPlannerBatchesDispatched counts one dispatched batch.
func IncPlannerBatchesDispatched() { plannerBatchesDispatchedTotal.Inc() }

// IncPlannerGenerations counts one search start.
func IncPlannerGenerations() { plannerGenerationsTotal.Inc() }

// IncPlannerAcceptableFound adds n acceptable trajectories to the total.
func IncPlannerAcceptableFound(n int) { plannerAcceptableFoundTotal.Add(float64(n)) }

// ObservePlannerSearchDuration records a completed search's wall-clock duration.
func ObservePlannerSearchDuration(seconds float64) { plannerSearchDurationSeconds.Observe(seconds) }

// IncRegistryPlansScheduled counts one plan reaching its launch trigger.
func IncRegistryPlansScheduled() { registryPlansScheduledTotal.Inc() }

// IncRegistryPlansExpired counts one plan evicted before launch.
func IncRegistryPlansExpired() { registryPlansExpiredTotal.Inc() }
