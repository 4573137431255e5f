package notifyrepo

import (
	"context"

	"bookswap/model"
)

// Repo delivers swap lifecycle events to the external notification
// collaborator. Delivery is best-effort: the caller logs failures and never
// rolls anything back on them.
type Repo interface {
	Deliver(ctx context.Context, ev model.SwapEvent) error
}

// Noop is used when no webhook is configured (local dev, tests).
type Noop struct{}

func (Noop) Deliver(ctx context.Context, ev model.SwapEvent) error { return nil }
