// Package swap implements the negotiation and settlement state machine for
// book swaps. Every action runs inside one transaction with row locks on the
// swap row and every touched book row, keeping the availability invariant:
// a book is available iff no active swap references it.
package swap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"bookswap/model"
)

// BookLedger is the slice of the book repository the state machine needs.
// Availability and ownership are mutated only through here.
type BookLedger interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	SetAvailability(ctx context.Context, tx *sql.Tx, id int64, available bool) error
	SetOwner(ctx context.Context, tx *sql.Tx, id, ownerID int64) error
}

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
}

type Service interface {
	Create(ctx context.Context, requesterID, bookID int64, offeredBookID *int64, message *string) (*model.SwapRequest, error)
	CounterOffer(ctx context.Context, actorID, requestID, counterBookID int64, message *string) (*model.SwapRequest, error)
	Accept(ctx context.Context, actorID, requestID int64) (*model.SwapRequest, error)
	Cancel(ctx context.Context, actorID, requestID int64) (*model.SwapRequest, error)
	Complete(ctx context.Context, actorID, requestID int64, rating *int, feedback *string) (*model.SwapRequest, error)
	AttachRating(ctx context.Context, actorID, requestID int64, rating int, feedback *string) error

	Get(ctx context.Context, actorID, requestID int64) (*model.SwapRequest, error)
	ListIncoming(ctx context.Context, userID int64) ([]model.SwapRequest, error)
	ListOutgoing(ctx context.Context, userID int64) ([]model.SwapRequest, error)
}

type service struct {
	tx    TxRunner
	r     Repo
	books BookLedger
	emit  Emitter
	now   func() time.Time
	log   *slog.Logger
}

func New(tx TxRunner, r Repo, books BookLedger, emit Emitter, log *slog.Logger) Service {
	return &service{tx: tx, r: r, books: books, emit: emit, now: time.Now, log: log}
}

// lockBooks takes row locks on the given book ids in ascending order so two
// transactions touching the same books acquire locks in the same sequence.
func (s *service) lockBooks(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*model.Book, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[int64]*model.Book, len(sorted))
	for _, id := range sorted {
		if _, done := out[id]; done {
			continue
		}
		b, err := s.books.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, makeErr(ErrNotFound, fmt.Sprintf("book %d not found", id))
			}
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}

func (s *service) getForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SwapRequest, error) {
	req, err := s.r.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "swap request not found")
		}
		return nil, err
	}
	return req, nil
}

func (s *service) Create(ctx context.Context, requesterID, bookID int64, offeredBookID *int64, message *string) (*model.SwapRequest, error) {
	if offeredBookID != nil && *offeredBookID == bookID {
		return nil, makeErr(ErrValidation, "offered book cannot be the requested book")
	}

	var out *model.SwapRequest
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		ids := []int64{bookID}
		if offeredBookID != nil {
			ids = append(ids, *offeredBookID)
		}
		locked, err := s.lockBooks(ctx, tx, ids)
		if err != nil {
			return err
		}

		requested := locked[bookID]
		if requested.OwnerID == requesterID {
			return makeErr(ErrValidation, "cannot request a swap for your own book")
		}
		if !requested.IsAvailable {
			return makeErr(ErrConflict, "book is no longer available")
		}
		if offeredBookID != nil {
			offered := locked[*offeredBookID]
			if offered.OwnerID != requesterID {
				return makeErr(ErrValidation, "offered book does not belong to you")
			}
			if !offered.IsAvailable {
				return makeErr(ErrConflict, "offered book is no longer available")
			}
		}

		req := &model.SwapRequest{
			BookID:        bookID,
			RequesterID:   requesterID,
			OwnerID:       requested.OwnerID, // captured under lock, not trusted later
			OfferedBookID: offeredBookID,
			Status:        model.SwapPending,
			Message:       message,
		}
		if _, err := s.r.Insert(ctx, tx, req); err != nil {
			return err
		}

		if err := s.books.SetAvailability(ctx, tx, bookID, false); err != nil {
			return err
		}
		if offeredBookID != nil {
			if err := s.books.SetAvailability(ctx, tx, *offeredBookID, false); err != nil {
				return err
			}
		}

		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit.Emit(model.SwapCreatedEvent{Payload: model.PayloadFor(out)})
	return out, nil
}

func (s *service) CounterOffer(ctx context.Context, actorID, requestID, counterBookID int64, message *string) (*model.SwapRequest, error) {
	var out *model.SwapRequest
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		req, err := s.getForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.SwapPending {
			return makeErr(ErrValidation, "counter-offer is only possible while the request is pending")
		}
		if actorID != req.OwnerID {
			return makeErr(ErrPermission, "only the book owner can counter-offer")
		}
		if counterBookID == req.BookID {
			return makeErr(ErrValidation, "counter-offered book cannot be the requested book")
		}

		ids := []int64{counterBookID}
		if req.OfferedBookID != nil {
			ids = append(ids, *req.OfferedBookID)
		}
		locked, err := s.lockBooks(ctx, tx, ids)
		if err != nil {
			return err
		}

		counter := locked[counterBookID]
		if counter.OwnerID != actorID {
			return makeErr(ErrValidation, "counter-offered book does not belong to you")
		}
		if !counter.IsAvailable {
			return makeErr(ErrConflict, "counter-offered book is no longer available")
		}

		// The originally offered book leaves the table; free it.
		if req.OfferedBookID != nil {
			if err := s.books.SetAvailability(ctx, tx, *req.OfferedBookID, true); err != nil {
				return err
			}
		}
		if err := s.books.SetAvailability(ctx, tx, counterBookID, false); err != nil {
			return err
		}
		if err := s.r.SetCounterOffer(ctx, tx, requestID, counterBookID, message); err != nil {
			return err
		}

		req.Status = model.SwapCounterOffer
		req.CounterOfferedBookID = &counterBookID
		req.CounterOfferMessage = message
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit.Emit(model.CounterOfferedEvent{Payload: model.PayloadFor(out)})
	return out, nil
}

func (s *service) Accept(ctx context.Context, actorID, requestID int64) (*model.SwapRequest, error) {
	var out *model.SwapRequest
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		req, err := s.getForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		party, ok := req.PartyOf(actorID)
		if !ok {
			return makeErr(ErrPermission, "not a party to this swap")
		}

		// PENDING is accepted by the owner, COUNTER_OFFER by the requester.
		switch req.Status {
		case model.SwapPending:
			if party != model.PartyOwner {
				return makeErr(ErrPermission, "only the book owner can accept a pending request")
			}
		case model.SwapCounterOffer:
			if party != model.PartyRequester {
				return makeErr(ErrPermission, "only the requester can accept a counter-offer")
			}
		default:
			return makeErr(ErrValidation, fmt.Sprintf("cannot accept a swap in status %s", req.Status))
		}

		if err := s.r.SetStatus(ctx, tx, requestID, model.SwapAccepted); err != nil {
			return err
		}
		req.Status = model.SwapAccepted
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit.Emit(model.SwapAcceptedEvent{Payload: model.PayloadFor(out)})
	return out, nil
}

func (s *service) Cancel(ctx context.Context, actorID, requestID int64) (*model.SwapRequest, error) {
	var out *model.SwapRequest
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		req, err := s.getForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if _, ok := req.PartyOf(actorID); !ok {
			return makeErr(ErrPermission, "not a party to this swap")
		}
		if !req.Status.IsActive() {
			return makeErr(ErrValidation, fmt.Sprintf("cannot cancel a swap in status %s", req.Status))
		}

		// Every referenced book goes back on the shelf.
		if _, err := s.lockBooks(ctx, tx, req.ReferencedBookIDs()); err != nil {
			return err
		}
		for _, id := range req.ReferencedBookIDs() {
			if err := s.books.SetAvailability(ctx, tx, id, true); err != nil {
				return err
			}
		}
		if err := s.r.SetCancelled(ctx, tx, requestID, actorID); err != nil {
			return err
		}

		req.Status = model.SwapCancelled
		req.CancelledBy = &actorID
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit.Emit(model.SwapCancelledEvent{Payload: model.PayloadFor(out), CancelledBy: actorID})
	return out, nil
}

func (s *service) Complete(ctx context.Context, actorID, requestID int64, rating *int, feedback *string) (*model.SwapRequest, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, makeErr(ErrValidation, "rating must be between 1 and 5")
	}

	var out *model.SwapRequest
	var fully bool
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		fully = false
		req, err := s.getForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		party, ok := req.PartyOf(actorID)
		if !ok {
			return makeErr(ErrPermission, "not a party to this swap")
		}
		if req.Status != model.SwapAccepted {
			return makeErr(ErrValidation, fmt.Sprintf("cannot complete a swap in status %s", req.Status))
		}
		if completedAtFor(req, party) != nil {
			return makeErr(ErrValidation, "completion already confirmed")
		}

		now := s.now().UTC()
		if err := s.r.SetPartyCompletion(ctx, tx, requestID, party, now, rating, feedback); err != nil {
			return err
		}
		recordCompletion(req, party, now, rating, feedback)

		// The transfer happens exactly once, in the same transaction as the
		// status flip, when the second party confirms.
		if bothConfirmed(req) {
			if err := s.settle(ctx, tx, req, now); err != nil {
				return err
			}
			fully = true
		}

		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if fully {
		s.emit.Emit(model.SwapFullyCompletedEvent{Payload: model.PayloadFor(out)})
	} else {
		confirmed, _ := out.PartyOf(actorID)
		s.emit.Emit(model.PartialCompletionEvent{
			Payload:        model.PayloadFor(out),
			AwaitingUserID: partyUserID(out, confirmed.Other()),
		})
	}
	return out, nil
}

func (s *service) AttachRating(ctx context.Context, actorID, requestID int64, rating int, feedback *string) error {
	if rating < 1 || rating > 5 {
		return makeErr(ErrValidation, "rating must be between 1 and 5")
	}
	return s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		req, err := s.getForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		party, ok := req.PartyOf(actorID)
		if !ok {
			return makeErr(ErrPermission, "not a party to this swap")
		}
		if !canAttachRating(req, party) {
			if req.Status != model.SwapCompleted {
				return makeErr(ErrValidation, "ratings can only be attached to completed swaps")
			}
			return makeErr(ErrValidation, "rating already recorded")
		}
		changed, err := s.r.AttachRating(ctx, tx, requestID, party, rating, feedback)
		if err != nil {
			return err
		}
		if !changed {
			return makeErr(ErrValidation, "rating already recorded")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actorID, requestID int64) (*model.SwapRequest, error) {
	req, err := s.r.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "swap request not found")
		}
		return nil, err
	}
	if _, ok := req.PartyOf(actorID); !ok {
		return nil, makeErr(ErrPermission, "not a party to this swap")
	}
	return req, nil
}

func (s *service) ListIncoming(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	return s.r.ListByOwner(ctx, userID)
}

func (s *service) ListOutgoing(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	return s.r.ListByRequester(ctx, userID)
}
