package swap

import (
	"context"
	"database/sql"
	"time"

	"bookswap/model"
)

// settle finalizes a dual-confirmed swap: re-validates current owners under
// lock, restores availability of every referenced book, swaps ownership of
// the requested book and the final offered book, and flips the status to
// COMPLETED. All of it in the caller's transaction; a COMPLETED row without
// a finished transfer must never be observable.
//
// If either owner changed since the request was created the books were
// mutated out of band. That aborts the whole completion; the caller's status
// stays ACCEPTED and operators reconcile by hand.
func (s *service) settle(ctx context.Context, tx *sql.Tx, req *model.SwapRequest, now time.Time) error {
	refs := req.ReferencedBookIDs()
	locked, err := s.lockBooks(ctx, tx, refs)
	if err != nil {
		return err
	}

	requested := locked[req.BookID]
	if requested.OwnerID != req.OwnerID {
		s.log.Error("ownership transfer aborted",
			"invariant", "requested book owner changed",
			"swap_id", req.ID,
			"book_id", req.BookID,
			"expected_owner", req.OwnerID,
			"actual_owner", requested.OwnerID,
		)
		return makeErr(ErrInvariant, "requested book changed owner since the swap was created")
	}

	// A counter-offered book is the owner's, the originally offered book the
	// requester's. The revalidation expects whichever party put the final
	// offered book on the table.
	final := req.FinalOfferedBookID()
	if final != nil {
		wantOwner := req.RequesterID
		if req.CounterOfferedBookID != nil {
			wantOwner = req.OwnerID
		}
		offered := locked[*final]
		if offered.OwnerID != wantOwner {
			s.log.Error("ownership transfer aborted",
				"invariant", "offered book owner changed",
				"swap_id", req.ID,
				"book_id", *final,
				"expected_owner", wantOwner,
				"actual_owner", offered.OwnerID,
			)
			return makeErr(ErrInvariant, "offered book changed owner since the swap was created")
		}
	}

	for _, id := range refs {
		if err := s.books.SetAvailability(ctx, tx, id, true); err != nil {
			return err
		}
	}

	if err := s.books.SetOwner(ctx, tx, req.BookID, req.RequesterID); err != nil {
		return err
	}
	if final != nil {
		if err := s.books.SetOwner(ctx, tx, *final, req.OwnerID); err != nil {
			return err
		}
	}

	if err := s.r.SetCompleted(ctx, tx, req.ID, now); err != nil {
		return err
	}
	req.Status = model.SwapCompleted
	req.CompletedAt = &now
	return nil
}
