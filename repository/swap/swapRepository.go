package swaprepo

import (
	"context"
	"database/sql"
	"time"

	"bookswap/model"
)

// Repo is the durable swap request store. Rows are never deleted; terminal
// rows remain as the audit and statistics source.
type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, s *model.SwapRequest) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SwapRequest, error)
	SetStatus(ctx context.Context, tx *sql.Tx, id int64, status model.SwapStatus) error
	SetCounterOffer(ctx context.Context, tx *sql.Tx, id, counterBookID int64, message *string) error
	SetCancelled(ctx context.Context, tx *sql.Tx, id, actorID int64) error
	SetPartyCompletion(ctx context.Context, tx *sql.Tx, id int64, party model.SwapParty, at time.Time, rating *int, feedback *string) error
	SetCompleted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	AttachRating(ctx context.Context, tx *sql.Tx, id int64, party model.SwapParty, rating int, feedback *string) (bool, error)

	GetByID(ctx context.Context, id int64) (*model.SwapRequest, error)
	ListByRequester(ctx context.Context, userID int64) ([]model.SwapRequest, error)
	ListByOwner(ctx context.Context, userID int64) ([]model.SwapRequest, error)
	ListStale(ctx context.Context, before time.Time) ([]model.SwapRequest, error)

	UserStats(ctx context.Context, userID int64) (*model.UserSwapStats, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const swapCols = `id, book_id, requester_id, owner_id, offered_book_id, counter_offered_book_id,
status, message, counter_offer_message, cancelled_by,
requester_completed_at, owner_completed_at,
requester_rating, owner_rating, requester_feedback, owner_feedback,
completed_at, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanSwap(row rowScanner) (*model.SwapRequest, error) {
	var s model.SwapRequest
	err := row.Scan(
		&s.ID, &s.BookID, &s.RequesterID, &s.OwnerID, &s.OfferedBookID, &s.CounterOfferedBookID,
		&s.Status, &s.Message, &s.CounterOfferMessage, &s.CancelledBy,
		&s.RequesterCompletedAt, &s.OwnerCompletedAt,
		&s.RequesterRating, &s.OwnerRating, &s.RequesterFeedback, &s.OwnerFeedback,
		&s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, s *model.SwapRequest) (int64, error) {
	const q = `
INSERT INTO swap_requests (book_id, requester_id, owner_id, offered_book_id, status, message)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at, updated_at`
	if err := tx.QueryRowContext(ctx, q,
		s.BookID, s.RequesterID, s.OwnerID, s.OfferedBookID, s.Status, s.Message,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return 0, err
	}
	return s.ID, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SwapRequest, error) {
	const q = `
SELECT ` + swapCols + `
FROM swap_requests
WHERE id = $1
FOR UPDATE`
	return scanSwap(tx.QueryRowContext(ctx, q, id))
}

func (r *repo) SetStatus(ctx context.Context, tx *sql.Tx, id int64, status model.SwapStatus) error {
	const q = `
UPDATE swap_requests
SET status = $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, status)
	return err
}

func (r *repo) SetCounterOffer(ctx context.Context, tx *sql.Tx, id, counterBookID int64, message *string) error {
	const q = `
UPDATE swap_requests
SET status = 'COUNTER_OFFER',
    counter_offered_book_id = $2,
    counter_offer_message = $3,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, counterBookID, message)
	return err
}

func (r *repo) SetCancelled(ctx context.Context, tx *sql.Tx, id, actorID int64) error {
	const q = `
UPDATE swap_requests
SET status = 'CANCELLED',
    cancelled_by = $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, actorID)
	return err
}

func (r *repo) SetPartyCompletion(ctx context.Context, tx *sql.Tx, id int64, party model.SwapParty, at time.Time, rating *int, feedback *string) error {
	const qRequester = `
UPDATE swap_requests
SET requester_completed_at = $2,
    requester_rating = $3,
    requester_feedback = $4,
    updated_at = NOW()
WHERE id = $1`
	const qOwner = `
UPDATE swap_requests
SET owner_completed_at = $2,
    owner_rating = $3,
    owner_feedback = $4,
    updated_at = NOW()
WHERE id = $1`
	q := qRequester
	if party == model.PartyOwner {
		q = qOwner
	}
	_, err := tx.ExecContext(ctx, q, id, at, rating, feedback)
	return err
}

func (r *repo) SetCompleted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	const q = `
UPDATE swap_requests
SET status = 'COMPLETED',
    completed_at = $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, at)
	return err
}

// AttachRating fills a missing rating on a completed swap. The IS NULL guard
// makes it a no-op when the party already rated; the bool reports whether a
// row changed.
func (r *repo) AttachRating(ctx context.Context, tx *sql.Tx, id int64, party model.SwapParty, rating int, feedback *string) (bool, error) {
	const qRequester = `
UPDATE swap_requests
SET requester_rating = $2,
    requester_feedback = COALESCE($3, requester_feedback),
    updated_at = NOW()
WHERE id = $1
AND requester_rating IS NULL`
	const qOwner = `
UPDATE swap_requests
SET owner_rating = $2,
    owner_feedback = COALESCE($3, owner_feedback),
    updated_at = NOW()
WHERE id = $1
AND owner_rating IS NULL`
	q := qRequester
	if party == model.PartyOwner {
		q = qOwner
	}
	res, err := tx.ExecContext(ctx, q, id, rating, feedback)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.SwapRequest, error) {
	const q = `SELECT ` + swapCols + ` FROM swap_requests WHERE id = $1`
	return scanSwap(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ListByRequester(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	const q = `
SELECT ` + swapCols + `
FROM swap_requests
WHERE requester_id = $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, userID)
}

func (r *repo) ListByOwner(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	const q = `
SELECT ` + swapCols + `
FROM swap_requests
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, userID)
}

// ListStale returns unanswered negotiations older than the cutoff, for the
// reminder sweep. ACCEPTED swaps are excluded; both parties already agreed.
func (r *repo) ListStale(ctx context.Context, before time.Time) ([]model.SwapRequest, error) {
	const q = `
SELECT ` + swapCols + `
FROM swap_requests
WHERE status IN ('PENDING','COUNTER_OFFER')
AND updated_at < $1
ORDER BY updated_at ASC`
	return r.list(ctx, q, before)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.SwapRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SwapRequest
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UserStats aggregates over swap rows. A user's received rating is the one
// logged by the opposite party: owner_rating rates the requester's side of
// the exchange when the user requested, and vice versa.
func (r *repo) UserStats(ctx context.Context, userID int64) (*model.UserSwapStats, error) {
	const q = `
SELECT
	COUNT(*)                                               AS total,
	COUNT(*) FILTER (WHERE status = 'COMPLETED')           AS completed,
	COUNT(*) FILTER (WHERE status = 'CANCELLED')           AS cancelled,
	AVG(CASE WHEN requester_id = $1 THEN owner_rating
	         WHEN owner_id     = $1 THEN requester_rating END) AS avg_rating,
	COUNT(CASE WHEN requester_id = $1 THEN owner_rating
	           WHEN owner_id     = $1 THEN requester_rating END) AS ratings_received
FROM swap_requests
WHERE requester_id = $1 OR owner_id = $1`
	st := &model.UserSwapStats{UserID: userID}
	err := r.db.QueryRowContext(ctx, q, userID).
		Scan(&st.TotalSwaps, &st.CompletedSwaps, &st.CancelledSwaps, &st.AverageRating, &st.RatingsReceived)
	if err != nil {
		return nil, err
	}
	if terminal := st.CompletedSwaps + st.CancelledSwaps; terminal > 0 {
		rate := float64(st.CompletedSwaps) / float64(terminal)
		st.CompletionRate = &rate
	}
	return st, nil
}
