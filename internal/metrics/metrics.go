// Package metrics exposes the simulation's prometheus collectors. These are
// an ambient concern carried regardless of the spec's non-goals: the engine
// doesn't need metrics to be correct, but a runnable service in this
// codebase's style always ships them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups every gauge/counter the scheduler updates once per tick.
type Collector struct {
	TicksProcessed  prometheus.Counter
	TradesSettled   prometheus.Counter
	CommandsApplied prometheus.Counter
	CurrentPrice    prometheus.Gauge
	BestBid         prometheus.Gauge
	BestAsk         prometheus.Gauge
	BookDepthBids   prometheus.Gauge
	BookDepthAsks   prometheus.Gauge
	BroadcastLag    prometheus.Gauge
}

// NewCollector builds and registers every collector against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		TicksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simengine",
			Name:      "ticks_processed_total",
			Help:      "Number of simulation ticks advanced.",
		}),
		TradesSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simengine",
			Name:      "trades_settled_total",
			Help:      "Number of trades settled across all ticks.",
		}),
		CommandsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simengine",
			Name:      "commands_applied_total",
			Help:      "Number of control-plane commands applied.",
		}),
		CurrentPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simengine",
			Name:      "current_price",
			Help:      "Last traded price, in minor units.",
		}),
		BestBid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simengine",
			Name:      "best_bid",
			Help:      "Top of book bid price, 0 if empty.",
		}),
		BestAsk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simengine",
			Name:      "best_ask",
			Help:      "Top of book ask price, 0 if empty.",
		}),
		BookDepthBids: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simengine",
			Name:      "book_depth_bids",
			Help:      "Number of resting bid price levels.",
		}),
		BookDepthAsks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simengine",
			Name:      "book_depth_asks",
			Help:      "Number of resting ask price levels.",
		}),
		BroadcastLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simengine",
			Name:      "broadcast_subscribers",
			Help:      "Current number of market-data subscribers.",
		}),
	}

	reg.MustRegister(
		c.TicksProcessed,
		c.TradesSettled,
		c.CommandsApplied,
		c.CurrentPrice,
		c.BestBid,
		c.BestAsk,
		c.BookDepthBids,
		c.BookDepthAsks,
		c.BroadcastLag,
	)
	return c
}
