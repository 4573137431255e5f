package swap

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"bookswap/model"
)

// In-memory store emulating the two repositories. Setters mutate stored
// rows; getters hand out copies, the way row scans do.

type memDB struct {
	books  map[int64]*model.Book
	swaps  map[int64]*model.SwapRequest
	nextID int64
}

func newMemDB() *memDB {
	return &memDB{
		books: make(map[int64]*model.Book),
		swaps: make(map[int64]*model.SwapRequest),
	}
}

func (db *memDB) addBook(id, ownerID int64, available bool) *model.Book {
	b := &model.Book{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "book",
		Author:      "author",
		IsAvailable: available,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	db.books[id] = b
	return b
}

type memBooks struct{ db *memDB }

var _ BookLedger = (*memBooks)(nil)

func (m *memBooks) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	b, ok := m.db.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memBooks) SetAvailability(ctx context.Context, tx *sql.Tx, id int64, available bool) error {
	if b, ok := m.db.books[id]; ok {
		b.IsAvailable = available
	}
	return nil
}

func (m *memBooks) SetOwner(ctx context.Context, tx *sql.Tx, id, ownerID int64) error {
	if b, ok := m.db.books[id]; ok {
		b.OwnerID = ownerID
	}
	return nil
}

type memSwaps struct{ db *memDB }

var _ Repo = (*memSwaps)(nil)

func (m *memSwaps) Insert(ctx context.Context, tx *sql.Tx, s *model.SwapRequest) (int64, error) {
	m.db.nextID++
	s.ID = m.db.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.db.swaps[s.ID] = &cp
	return s.ID, nil
}

func (m *memSwaps) get(id int64) (*model.SwapRequest, error) {
	s, ok := m.db.swaps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memSwaps) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SwapRequest, error) {
	return m.get(id)
}

func (m *memSwaps) GetByID(ctx context.Context, id int64) (*model.SwapRequest, error) {
	return m.get(id)
}

func (m *memSwaps) SetStatus(ctx context.Context, tx *sql.Tx, id int64, status model.SwapStatus) error {
	m.db.swaps[id].Status = status
	return nil
}

func (m *memSwaps) SetCounterOffer(ctx context.Context, tx *sql.Tx, id, counterBookID int64, message *string) error {
	s := m.db.swaps[id]
	s.Status = model.SwapCounterOffer
	s.CounterOfferedBookID = &counterBookID
	s.CounterOfferMessage = message
	return nil
}

func (m *memSwaps) SetCancelled(ctx context.Context, tx *sql.Tx, id, actorID int64) error {
	s := m.db.swaps[id]
	s.Status = model.SwapCancelled
	s.CancelledBy = &actorID
	return nil
}

func (m *memSwaps) SetPartyCompletion(ctx context.Context, tx *sql.Tx, id int64, party model.SwapParty, at time.Time, rating *int, feedback *string) error {
	recordCompletion(m.db.swaps[id], party, at, rating, feedback)
	return nil
}

func (m *memSwaps) SetCompleted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	s := m.db.swaps[id]
	s.Status = model.SwapCompleted
	s.CompletedAt = &at
	return nil
}

func (m *memSwaps) AttachRating(ctx context.Context, tx *sql.Tx, id int64, party model.SwapParty, rating int, feedback *string) (bool, error) {
	s := m.db.swaps[id]
	if ratingFor(s, party) != nil {
		return false, nil
	}
	if party == model.PartyRequester {
		s.RequesterRating = &rating
		if feedback != nil {
			s.RequesterFeedback = feedback
		}
	} else {
		s.OwnerRating = &rating
		if feedback != nil {
			s.OwnerFeedback = feedback
		}
	}
	return true, nil
}

func (m *memSwaps) ListByRequester(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	var out []model.SwapRequest
	for _, s := range m.db.swaps {
		if s.RequesterID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSwaps) ListByOwner(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	var out []model.SwapRequest
	for _, s := range m.db.swaps {
		if s.OwnerID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// stubRunner runs the body without a real transaction.
type stubRunner struct{}

func (stubRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// captureEmitter records events synchronously.
type captureEmitter struct {
	mu     sync.Mutex
	events []model.SwapEvent
}

func (e *captureEmitter) Emit(ev model.SwapEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *captureEmitter) kinds() []model.EventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.EventKind, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Kind()
	}
	return out
}

func (e *captureEmitter) last() model.SwapEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) == 0 {
		return nil
	}
	return e.events[len(e.events)-1]
}

func newTestService() (*service, *memDB, *captureEmitter) {
	db := newMemDB()
	em := &captureEmitter{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(stubRunner{}, &memSwaps{db: db}, &memBooks{db: db}, em, log).(*service)
	return svc, db, em
}
