// model/swap.go
package model

import "time"

type SwapStatus string

const (
	SwapPending      SwapStatus = "PENDING"
	SwapCounterOffer SwapStatus = "COUNTER_OFFER"
	SwapAccepted     SwapStatus = "ACCEPTED"
	SwapCancelled    SwapStatus = "CANCELLED"
	SwapCompleted    SwapStatus = "COMPLETED"
)

// IsTerminal reports whether no further transition is allowed.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapCancelled || s == SwapCompleted
}

// IsActive reports whether the request still ties up its books.
func (s SwapStatus) IsActive() bool {
	return s == SwapPending || s == SwapCounterOffer || s == SwapAccepted
}

// SwapParty identifies which side of a swap an actor is on.
type SwapParty string

const (
	PartyRequester SwapParty = "REQUESTER"
	PartyOwner     SwapParty = "OWNER"
)

func (p SwapParty) Other() SwapParty {
	if p == PartyRequester {
		return PartyOwner
	}
	return PartyRequester
}

type SwapRequest struct {
	ID                   int64      `json:"id"`
	BookID               int64      `json:"book_id"`
	RequesterID          int64      `json:"requester_id"`
	OwnerID              int64      `json:"owner_id"`
	OfferedBookID        *int64     `json:"offered_book_id,omitempty"`
	CounterOfferedBookID *int64     `json:"counter_offered_book_id,omitempty"`
	Status               SwapStatus `json:"status"`
	Message              *string    `json:"message,omitempty"`
	CounterOfferMessage  *string    `json:"counter_offer_message,omitempty"`
	CancelledBy          *int64     `json:"cancelled_by,omitempty"`
	RequesterCompletedAt *time.Time `json:"requester_completed_at,omitempty"`
	OwnerCompletedAt     *time.Time `json:"owner_completed_at,omitempty"`
	RequesterRating      *int       `json:"requester_rating,omitempty"`
	OwnerRating          *int       `json:"owner_rating,omitempty"`
	RequesterFeedback    *string    `json:"requester_feedback,omitempty"`
	OwnerFeedback        *string    `json:"owner_feedback,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// PartyOf returns which side of the swap the actor is on, and whether the
// actor is a party at all.
func (s *SwapRequest) PartyOf(actorID int64) (SwapParty, bool) {
	switch actorID {
	case s.RequesterID:
		return PartyRequester, true
	case s.OwnerID:
		return PartyOwner, true
	}
	return "", false
}

// FinalOfferedBookID is the book on the table opposite the requested one:
// the counter-offered book if the owner proposed one, else the originally
// offered book. Nil when the requester offered nothing and no counter was
// made.
func (s *SwapRequest) FinalOfferedBookID() *int64 {
	if s.CounterOfferedBookID != nil {
		return s.CounterOfferedBookID
	}
	return s.OfferedBookID
}

// ReferencedBookIDs lists every non-null book the request ties up.
func (s *SwapRequest) ReferencedBookIDs() []int64 {
	ids := []int64{s.BookID}
	if s.OfferedBookID != nil {
		ids = append(ids, *s.OfferedBookID)
	}
	if s.CounterOfferedBookID != nil {
		ids = append(ids, *s.CounterOfferedBookID)
	}
	return ids
}
