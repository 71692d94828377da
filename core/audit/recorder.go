package audit

import (
	"context"

	"github.com/kilianp07/walletfactory/core/events"
)

// Recorder turns factory events into records appended to a Store. The
// factory calls it inline, so a record exists before the call returns.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder { return &Recorder{store: store} }

// Record appends the record for ev. Cancellation of ctx does not abort the append.
func (r *Recorder) Record(ctx context.Context, ev events.Event) error {
	return r.store.Append(context.WithoutCancel(ctx), FromEvent(ev))
}
