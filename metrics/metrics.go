package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DecisionsTotal counts every Decision emitted, labelled by kind
	// (trade/skip/no_signal) and symbol.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ictengine_decisions_total",
			Help: "Total number of Decisions emitted, by kind and symbol.",
		},
		[]string{"kind", "symbol"},
	)

	// RejectionsTotal counts Skip decisions by the gate that produced the
	// first hard failure.
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ictengine_rejections_total",
			Help: "Total number of Skip decisions, by rejecting gate.",
		},
		[]string{"gate", "symbol"},
	)

	// TicksProcessed counts replay/live ticks processed by the scheduler.
	TicksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ictengine_ticks_processed_total",
			Help: "Total number of scheduler ticks processed, by symbol.",
		},
		[]string{"symbol"},
	)

	// PositionsOpen is the current number of open simulated positions, by
	// symbol.
	PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ictengine_positions_open",
			Help: "Current number of open positions, by symbol.",
		},
		[]string{"symbol"},
	)

	// EquityGauge is the current mark-to-market equity of the simulated
	// broker (or, in live mode, the last reported account equity).
	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ictengine_equity",
			Help: "Current equity (balance + mark-to-market of open positions).",
		},
	)
)

func init() {
	prometheus.MustRegister(DecisionsTotal, RejectionsTotal, TicksProcessed, PositionsOpen, EquityGauge)
}
