package swap

import (
	"context"
	"log/slog"
	"time"

	"bookswap/model"
	notifyrepo "bookswap/repository/notify"
)

// Emitter hands lifecycle events to the notification boundary after the
// transaction committed. A failed delivery never reverses committed state.
type Emitter interface {
	Emit(ev model.SwapEvent)
}

type asyncEmitter struct {
	n       notifyrepo.Repo
	log     *slog.Logger
	timeout time.Duration
}

func NewEmitter(n notifyrepo.Repo, log *slog.Logger) Emitter {
	return &asyncEmitter{n: n, log: log, timeout: 10 * time.Second}
}

func (e *asyncEmitter) Emit(ev model.SwapEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := e.n.Deliver(ctx, ev); err != nil {
			e.log.Error("event delivery failed",
				"kind", ev.Kind(),
				"swap_id", ev.Swap().SwapID,
				"err", err,
			)
		}
	}()
}
