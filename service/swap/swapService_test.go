package swap

import (
	"context"
	"testing"

	"bookswap/model"

	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64  { return &v }
func str(s string) *string { return &s }
func rat(n int) *int       { return &n }

const (
	userOwner     int64 = 1
	userRequester int64 = 2
	userStranger  int64 = 9
)

// --- Create ---

func TestCreate_Success(t *testing.T) {
	svc, db, em := newTestService()
	db.addBook(10, userOwner, true)
	db.addBook(20, userRequester, true)

	req, err := svc.Create(context.Background(), userRequester, 10, i64(20), str("trade?"))
	require.NoError(t, err)
	require.Equal(t, model.SwapPending, req.Status)
	require.Equal(t, userOwner, req.OwnerID)
	require.Equal(t, userRequester, req.RequesterID)

	require.False(t, db.books[10].IsAvailable)
	require.False(t, db.books[20].IsAvailable)

	require.Equal(t, []model.EventKind{model.EventSwapCreated}, em.kinds())
	require.Equal(t, req.ID, em.last().Swap().SwapID)
}

func TestCreate_WithoutOfferedBook(t *testing.T) {
	svc, db, _ := newTestService()
	db.addBook(10, userOwner, true)

	req, err := svc.Create(context.Background(), userRequester, 10, nil, nil)
	require.NoError(t, err)
	require.Nil(t, req.OfferedBookID)
	require.False(t, db.books[10].IsAvailable)
}

func TestCreate_SelfSwap(t *testing.T) {
	svc, db, em := newTestService()
	db.addBook(10, userOwner, true)

	_, err := svc.Create(context.Background(), userOwner, 10, nil, nil)
	require.Error(t, err)
	require.Equal(t, ErrValidation, Code(err))
	require.True(t, db.books[10].IsAvailable)
	require.Empty(t, em.kinds())
}

func TestCreate_BookUnavailable(t *testing.T) {
	svc, db, _ := newTestService()
	db.addBook(10, userOwner, false)

	_, err := svc.Create(context.Background(), userRequester, 10, nil, nil)
	require.Equal(t, ErrConflict, Code(err))
}

func TestCreate_BookMissing(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), userRequester, 404, nil, nil)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestCreate_OfferedBookNotOwned(t *testing.T) {
	svc, db, _ := newTestService()
	db.addBook(10, userOwner, true)
	db.addBook(20, userStranger, true)

	_, err := svc.Create(context.Background(), userRequester, 10, i64(20), nil)
	require.Equal(t, ErrValidation, Code(err))
}

func TestCreate_OfferedBookUnavailable(t *testing.T) {
	svc, db, _ := newTestService()
	db.addBook(10, userOwner, true)
	db.addBook(20, userRequester, false)

	_, err := svc.Create(context.Background(), userRequester, 10, i64(20), nil)
	require.Equal(t, ErrConflict, Code(err))
}

func TestCreate_OfferedEqualsRequested(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), userRequester, 10, i64(10), nil)
	require.Equal(t, ErrValidation, Code(err))
}

// --- CounterOffer ---

func pendingSwap(t *testing.T, svc *service, db *memDB, offered *int64) *model.SwapRequest {
	t.Helper()
	db.addBook(10, userOwner, true)
	if offered != nil {
		db.addBook(*offered, userRequester, true)
	}
	req, err := svc.Create(context.Background(), userRequester, 10, offered, nil)
	require.NoError(t, err)
	return req
}

func TestCounterOffer_ReplacesOfferedBook(t *testing.T) {
	svc, db, em := newTestService()
	req := pendingSwap(t, svc, db, i64(20))
	db.addBook(30, userOwner, true)

	out, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 30, str("this one instead"))
	require.NoError(t, err)
	require.Equal(t, model.SwapCounterOffer, out.Status)
	require.Equal(t, int64(30), *out.CounterOfferedBookID)

	// the originally offered book goes back on the shelf
	require.True(t, db.books[20].IsAvailable)
	require.False(t, db.books[30].IsAvailable)
	require.False(t, db.books[10].IsAvailable)

	require.Equal(t, model.EventCounterOffered, em.last().Kind())
}

func TestCounterOffer_OnlyOwner(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	db.addBook(30, userRequester, true)

	_, err := svc.CounterOffer(context.Background(), userRequester, req.ID, 30, nil)
	require.Equal(t, ErrPermission, Code(err))
}

func TestCounterOffer_WrongState(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	db.addBook(30, userOwner, true)

	_, err := svc.Accept(context.Background(), userOwner, req.ID)
	require.NoError(t, err)

	_, err = svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.Equal(t, ErrValidation, Code(err))
}

func TestCounterOffer_CounterBookUnavailable(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	db.addBook(30, userOwner, false)

	_, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.Equal(t, ErrConflict, Code(err))
}

func TestCounterOffer_CounterBookNotOwned(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	db.addBook(30, userStranger, true)

	_, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.Equal(t, ErrValidation, Code(err))
}

func TestCounterOffer_CounterEqualsRequested(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)

	_, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 10, nil)
	require.Equal(t, ErrValidation, Code(err))
}

// --- Accept ---

func TestAccept_OwnerAcceptsPending(t *testing.T) {
	svc, db, em := newTestService()
	req := pendingSwap(t, svc, db, i64(20))

	out, err := svc.Accept(context.Background(), userOwner, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapAccepted, out.Status)

	// no availability change on accept
	require.False(t, db.books[10].IsAvailable)
	require.False(t, db.books[20].IsAvailable)
	require.Equal(t, model.EventSwapAccepted, em.last().Kind())
}

func TestAccept_RequesterAcceptsCounterOffer(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, i64(20))
	db.addBook(30, userOwner, true)
	_, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.NoError(t, err)

	out, err := svc.Accept(context.Background(), userRequester, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapAccepted, out.Status)
}

func TestAccept_WrongRole(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)

	// requester cannot accept their own pending request
	_, err := svc.Accept(context.Background(), userRequester, req.ID)
	require.Equal(t, ErrPermission, Code(err))
}

func TestAccept_NotAParty(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)

	_, err := svc.Accept(context.Background(), userStranger, req.ID)
	require.Equal(t, ErrPermission, Code(err))
}

func TestAccept_Terminal(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	_, err := svc.Cancel(context.Background(), userOwner, req.ID)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), userOwner, req.ID)
	require.Equal(t, ErrValidation, Code(err))
	require.Equal(t, model.SwapCancelled, db.swaps[req.ID].Status)
}

// --- Cancel ---

func TestCancel_RestoresAvailability(t *testing.T) {
	svc, db, em := newTestService()
	req := pendingSwap(t, svc, db, i64(20))

	out, err := svc.Cancel(context.Background(), userRequester, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.SwapCancelled, out.Status)
	require.Equal(t, userRequester, *out.CancelledBy)

	// round trip: create then cancel restores the pre-create state
	require.True(t, db.books[10].IsAvailable)
	require.True(t, db.books[20].IsAvailable)

	ev, ok := em.last().(model.SwapCancelledEvent)
	require.True(t, ok)
	require.Equal(t, userRequester, ev.CancelledBy)
}

func TestCancel_RestoresCounterOfferedBook(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, i64(20))
	db.addBook(30, userOwner, true)
	_, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), userOwner, req.ID)
	require.NoError(t, err)
	require.True(t, db.books[10].IsAvailable)
	require.True(t, db.books[20].IsAvailable)
	require.True(t, db.books[30].IsAvailable)
}

func TestCancel_NotAParty(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)

	_, err := svc.Cancel(context.Background(), userStranger, req.ID)
	require.Equal(t, ErrPermission, Code(err))
	require.Equal(t, model.SwapPending, db.swaps[req.ID].Status)
}

func TestCancel_AlreadyTerminal(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	_, err := svc.Cancel(context.Background(), userOwner, req.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), userRequester, req.ID)
	require.Equal(t, ErrValidation, Code(err))
}

// --- Complete ---

func acceptedSwap(t *testing.T, svc *service, db *memDB) *model.SwapRequest {
	t.Helper()
	req := pendingSwap(t, svc, db, i64(20))
	out, err := svc.Accept(context.Background(), userOwner, req.ID)
	require.NoError(t, err)
	return out
}

func TestComplete_FirstConfirmationIsPartial(t *testing.T) {
	svc, db, em := newTestService()
	req := acceptedSwap(t, svc, db)

	out, err := svc.Complete(context.Background(), userRequester, req.ID, rat(5), str("great swap"))
	require.NoError(t, err)

	// one confirmation alone never completes
	require.Equal(t, model.SwapAccepted, out.Status)
	require.NotNil(t, out.RequesterCompletedAt)
	require.Nil(t, out.OwnerCompletedAt)
	require.Nil(t, out.CompletedAt)

	// books stay off the shelf until settlement
	require.False(t, db.books[10].IsAvailable)
	require.False(t, db.books[20].IsAvailable)

	ev, ok := em.last().(model.PartialCompletionEvent)
	require.True(t, ok)
	require.Equal(t, userOwner, ev.AwaitingUserID)
}

func TestComplete_SecondConfirmationSettles(t *testing.T) {
	svc, db, em := newTestService()
	req := acceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userRequester, req.ID, rat(5), nil)
	require.NoError(t, err)
	out, err := svc.Complete(context.Background(), userOwner, req.ID, rat(4), nil)
	require.NoError(t, err)

	require.Equal(t, model.SwapCompleted, out.Status)
	require.NotNil(t, out.CompletedAt)

	// ownership swapped atomically with the status flip
	require.Equal(t, userRequester, db.books[10].OwnerID)
	require.Equal(t, userOwner, db.books[20].OwnerID)

	// both books are back on the shelf under their new owners
	require.True(t, db.books[10].IsAvailable)
	require.True(t, db.books[20].IsAvailable)

	require.Equal(t, model.EventSwapFullyCompleted, em.last().Kind())
}

func TestComplete_NoOfferedBookTransfersOnlyRequested(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)
	_, err := svc.Accept(context.Background(), userOwner, req.ID)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), userOwner, req.ID, nil, nil)
	require.NoError(t, err)
	out, err := svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.NoError(t, err)

	require.Equal(t, model.SwapCompleted, out.Status)
	require.Equal(t, userRequester, db.books[10].OwnerID)
	require.True(t, db.books[10].IsAvailable)
}

func TestComplete_SamePartyTwice(t *testing.T) {
	svc, db, _ := newTestService()
	req := acceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.Equal(t, ErrValidation, Code(err))

	// still waiting on the owner; no transfer happened
	require.Equal(t, model.SwapAccepted, db.swaps[req.ID].Status)
	require.Equal(t, userOwner, db.books[10].OwnerID)
}

func TestComplete_RatingOutOfRange(t *testing.T) {
	svc, db, _ := newTestService()
	req := acceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userRequester, req.ID, rat(0), nil)
	require.Equal(t, ErrValidation, Code(err))
	_, err = svc.Complete(context.Background(), userRequester, req.ID, rat(6), nil)
	require.Equal(t, ErrValidation, Code(err))
}

func TestComplete_WrongState(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)

	_, err := svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.Equal(t, ErrValidation, Code(err))
}

func TestComplete_NotAParty(t *testing.T) {
	svc, db, _ := newTestService()
	req := acceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userStranger, req.ID, nil, nil)
	require.Equal(t, ErrPermission, Code(err))
}

func TestComplete_AbortsWhenOwnerChangedOutOfBand(t *testing.T) {
	svc, db, _ := newTestService()
	req := acceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.NoError(t, err)

	// requested book changed hands outside the core
	db.books[10].OwnerID = userStranger

	_, err = svc.Complete(context.Background(), userOwner, req.ID, nil, nil)
	require.Equal(t, ErrInvariant, Code(err))

	// no partial transfer is observable
	require.Equal(t, model.SwapAccepted, db.swaps[req.ID].Status)
	require.Nil(t, db.swaps[req.ID].CompletedAt)
	require.Equal(t, userRequester, db.books[20].OwnerID)
}

func counterAcceptedSwap(t *testing.T, svc *service, db *memDB) *model.SwapRequest {
	t.Helper()
	req := pendingSwap(t, svc, db, i64(20))
	db.addBook(30, userOwner, true)
	_, err := svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.NoError(t, err)
	out, err := svc.Accept(context.Background(), userRequester, req.ID)
	require.NoError(t, err)
	return out
}

func TestComplete_CounterOfferSettlementDirection(t *testing.T) {
	svc, db, _ := newTestService()
	req := counterAcceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userOwner, req.ID, nil, nil)
	require.NoError(t, err)
	out, err := svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, model.SwapCompleted, out.Status)

	// the requested book moves to the requester; the counter book stays with
	// the owner who put it on the table, and the superseded offer is untouched
	require.Equal(t, userRequester, db.books[10].OwnerID)
	require.Equal(t, userOwner, db.books[30].OwnerID)
	require.Equal(t, userRequester, db.books[20].OwnerID)
	require.True(t, db.books[30].IsAvailable)
}

func TestComplete_AbortsWhenCounterBookChangedOutOfBand(t *testing.T) {
	svc, db, _ := newTestService()
	req := counterAcceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userOwner, req.ID, nil, nil)
	require.NoError(t, err)

	// the counter book is the owner's; someone else holding it is fatal
	db.books[30].OwnerID = userStranger

	_, err = svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.Equal(t, ErrInvariant, Code(err))
	require.Equal(t, model.SwapAccepted, db.swaps[req.ID].Status)
	require.Equal(t, userOwner, db.books[10].OwnerID)
}

func TestComplete_AbortsWhenOfferedBookChangedOutOfBand(t *testing.T) {
	svc, db, _ := newTestService()
	req := acceptedSwap(t, svc, db)

	_, err := svc.Complete(context.Background(), userRequester, req.ID, nil, nil)
	require.NoError(t, err)

	// no counter offer here, so the offered book must still be the requester's
	db.books[20].OwnerID = userStranger

	_, err = svc.Complete(context.Background(), userOwner, req.ID, nil, nil)
	require.Equal(t, ErrInvariant, Code(err))
	require.Equal(t, model.SwapAccepted, db.swaps[req.ID].Status)
	require.Equal(t, userOwner, db.books[10].OwnerID)
}

// --- AttachRating ---

func completedSwap(t *testing.T, svc *service, db *memDB) *model.SwapRequest {
	t.Helper()
	req := acceptedSwap(t, svc, db)
	_, err := svc.Complete(context.Background(), userRequester, req.ID, rat(5), nil)
	require.NoError(t, err)
	out, err := svc.Complete(context.Background(), userOwner, req.ID, nil, nil)
	require.NoError(t, err)
	return out
}

func TestAttachRating_FillsMissingRating(t *testing.T) {
	svc, db, _ := newTestService()
	req := completedSwap(t, svc, db)

	err := svc.AttachRating(context.Background(), userOwner, req.ID, 3, str("late but fine"))
	require.NoError(t, err)
	require.Equal(t, 3, *db.swaps[req.ID].OwnerRating)
	require.Equal(t, model.SwapCompleted, db.swaps[req.ID].Status)
}

func TestAttachRating_AlreadyRated(t *testing.T) {
	svc, db, _ := newTestService()
	req := completedSwap(t, svc, db)

	err := svc.AttachRating(context.Background(), userRequester, req.ID, 1, nil)
	require.Equal(t, ErrValidation, Code(err))
	require.Equal(t, 5, *db.swaps[req.ID].RequesterRating)
}

func TestAttachRating_NotCompleted(t *testing.T) {
	svc, db, _ := newTestService()
	req := acceptedSwap(t, svc, db)

	err := svc.AttachRating(context.Background(), userOwner, req.ID, 4, nil)
	require.Equal(t, ErrValidation, Code(err))
}

// --- Get ---

func TestGet_PartyOnly(t *testing.T) {
	svc, db, _ := newTestService()
	req := pendingSwap(t, svc, db, nil)

	_, err := svc.Get(context.Background(), userOwner, req.ID)
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), userStranger, req.ID)
	require.Equal(t, ErrPermission, Code(err))
	_, err = svc.Get(context.Background(), userOwner, 404)
	require.Equal(t, ErrNotFound, Code(err))
}

// --- full negotiation walkthrough ---

func TestScenario_CounterOfferNegotiation(t *testing.T) {
	svc, db, em := newTestService()
	// U1 owns A(=10) and C(=30); U2 owns B(=20); all available.
	db.addBook(10, userOwner, true)
	db.addBook(20, userRequester, true)
	db.addBook(30, userOwner, true)

	req, err := svc.Create(context.Background(), userRequester, 10, i64(20), nil)
	require.NoError(t, err)
	require.False(t, db.books[10].IsAvailable)
	require.False(t, db.books[20].IsAvailable)

	_, err = svc.CounterOffer(context.Background(), userOwner, req.ID, 30, nil)
	require.NoError(t, err)
	require.True(t, db.books[20].IsAvailable)
	require.False(t, db.books[30].IsAvailable)

	_, err = svc.Accept(context.Background(), userRequester, req.ID)
	require.NoError(t, err)

	out, err := svc.Complete(context.Background(), userRequester, req.ID, rat(5), nil)
	require.NoError(t, err)
	require.Equal(t, model.SwapAccepted, out.Status)

	out, err = svc.Complete(context.Background(), userOwner, req.ID, rat(4), nil)
	require.NoError(t, err)
	require.Equal(t, model.SwapCompleted, out.Status)

	// A goes to U2, C goes to U1, B is untouched.
	require.Equal(t, userRequester, db.books[10].OwnerID)
	require.Equal(t, userOwner, db.books[30].OwnerID)
	require.Equal(t, userRequester, db.books[20].OwnerID)
	require.True(t, db.books[10].IsAvailable)
	require.True(t, db.books[20].IsAvailable)
	require.True(t, db.books[30].IsAvailable)

	require.Equal(t, []model.EventKind{
		model.EventSwapCreated,
		model.EventCounterOffered,
		model.EventSwapAccepted,
		model.EventPartialCompletion,
		model.EventSwapFullyCompleted,
	}, em.kinds())
}
