package statssvc

import (
	"context"

	"bookswap/model"
)

// Read-only dashboard surface. Everything is derived from swap rows; there
// is no write path here.

type Repo interface {
	UserStats(ctx context.Context, userID int64) (*model.UserSwapStats, error)
}

type Service interface {
	ForUser(ctx context.Context, userID int64) (*model.UserSwapStats, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) ForUser(ctx context.Context, userID int64) (*model.UserSwapStats, error) {
	return s.r.UserStats(ctx, userID)
}
