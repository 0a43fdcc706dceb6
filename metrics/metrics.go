// Package metrics contains all application-logic metrics
package metrics

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	txsObserved         = metrics.NewCounter("txs_observed_total")
	txsQueued           = metrics.NewCounter("txs_queued_total")
	queueFull           = metrics.NewCounter("txs_queue_full_total")
	queuePopStaleItem   = metrics.NewCounter("txs_queue_pop_stale_item_total")
	simulationsFailed   = metrics.NewCounter("bundle_simulations_failed_total")
	bundlesUnprofitable = metrics.NewCounter("bundles_unprofitable_total")
	bundlesSubmitted    = metrics.NewCounter("bundles_submitted_total")
	bundleSendFailed    = metrics.NewCounter("bundles_send_failed_total")
	panics              = metrics.NewCounter("process_panics_total")

	processDuration = metrics.NewHistogram("process_duration_milliseconds")
)

func IncTxsObserved() {
	txsObserved.Inc()
}

func IncTxsQueued() {
	txsQueued.Inc()
}

func IncQueueFull() {
	queueFull.Inc()
}

func IncQueuePopStaleItem() {
	queuePopStaleItem.Inc()
}

// IncOpportunityRejected counts expected disqualifications by reason
func IncOpportunityRejected(reason string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`opportunities_rejected_total{reason=%q}`, reason)).Inc()
}

func IncSimulationFailed() {
	simulationsFailed.Inc()
}

func IncUnprofitable() {
	bundlesUnprofitable.Inc()
}

func IncBundlesSubmitted() {
	bundlesSubmitted.Inc()
}

func IncBundleSendFailed() {
	bundleSendFailed.Inc()
}

func IncPanics() {
	panics.Inc()
}

func RecordProcessDuration(d time.Duration) {
	processDuration.Update(float64(d.Milliseconds()))
}
