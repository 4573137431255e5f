package swap

import (
	"context"
	"log/slog"
	"time"

	"bookswap/model"
)

// StaleLister is implemented by the swap repository.
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time) ([]model.SwapRequest, error)
}

// Reminder periodically nudges negotiations that have sat unanswered in
// PENDING or COUNTER_OFFER. Read-only: it emits events, never mutates state.
type Reminder struct {
	r      StaleLister
	emit   Emitter
	log    *slog.Logger
	maxAge time.Duration
	every  time.Duration
	now    func() time.Time
}

func NewReminder(r StaleLister, emit Emitter, log *slog.Logger, maxAge, every time.Duration) *Reminder {
	return &Reminder{r: r, emit: emit, log: log, maxAge: maxAge, every: every, now: time.Now}
}

func (w *Reminder) Start(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	go func() {
		defer ticker.Stop()
		if _, err := w.Sweep(ctx); err != nil {
			w.log.Error("reminder sweep failed", "err", err)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Sweep(ctx); err != nil {
					w.log.Error("reminder sweep failed", "err", err)
				}
			}
		}
	}()
}

func (w *Reminder) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().UTC().Add(-w.maxAge)
	stale, err := w.r.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for i := range stale {
		req := &stale[i]
		w.emit.Emit(model.SwapReminderEvent{
			Payload:      model.PayloadFor(req),
			PendingSince: req.UpdatedAt,
		})
	}
	return len(stale), nil
}
