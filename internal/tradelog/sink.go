// Package tradelog defines the append-only trade log sink and a CSV-backed
// implementation of it. The spec treats the trade log as an external
// collaborator specified only by interface; this is a real, minimal
// implementation of that interface so the simulation is runnable end to
// end.
package tradelog

import "fenrir/internal/model"

// Sink receives trades in emission order. Implementations must not mutate
// the trade and should not block the caller for long, since it is invoked
// from the simulation worker's settlement step.
type Sink interface {
	Append(trade model.Trade) error
}

// NopSink discards every trade; useful for tests that don't care about the
// log.
type NopSink struct{}

func (NopSink) Append(model.Trade) error { return nil }
