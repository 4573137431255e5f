// model/event.go
//
// Swap lifecycle events handed to the notification boundary after commit.
// One struct per transition; all share the same payload so a collaborator
// can render a notice without querying the core back.
package model

import "time"

type EventKind string

const (
	EventSwapCreated        EventKind = "SWAP_CREATED"
	EventCounterOffered     EventKind = "COUNTER_OFFERED"
	EventSwapAccepted       EventKind = "SWAP_ACCEPTED"
	EventSwapCancelled      EventKind = "SWAP_CANCELLED"
	EventPartialCompletion  EventKind = "PARTIAL_COMPLETION"
	EventSwapFullyCompleted EventKind = "SWAP_FULLY_COMPLETED"
	EventSwapReminder       EventKind = "SWAP_REMINDER"
)

type SwapEvent interface {
	Kind() EventKind
	Swap() EventPayload
}

type EventPayload struct {
	SwapID               int64   `json:"swap_id"`
	RequesterID          int64   `json:"requester_id"`
	OwnerID              int64   `json:"owner_id"`
	RequestedBookID      int64   `json:"requested_book_id"`
	OfferedBookID        *int64  `json:"offered_book_id,omitempty"`
	CounterOfferedBookID *int64  `json:"counter_offered_book_id,omitempty"`
	Message              *string `json:"message,omitempty"`
}

// PayloadFor builds the shared event payload from a swap row.
func PayloadFor(s *SwapRequest) EventPayload {
	return EventPayload{
		SwapID:               s.ID,
		RequesterID:          s.RequesterID,
		OwnerID:              s.OwnerID,
		RequestedBookID:      s.BookID,
		OfferedBookID:        s.OfferedBookID,
		CounterOfferedBookID: s.CounterOfferedBookID,
		Message:              s.Message,
	}
}

type SwapCreatedEvent struct {
	Payload EventPayload `json:"swap"`
}

func (SwapCreatedEvent) Kind() EventKind      { return EventSwapCreated }
func (e SwapCreatedEvent) Swap() EventPayload { return e.Payload }

type CounterOfferedEvent struct {
	Payload EventPayload `json:"swap"`
}

func (CounterOfferedEvent) Kind() EventKind      { return EventCounterOffered }
func (e CounterOfferedEvent) Swap() EventPayload { return e.Payload }

type SwapAcceptedEvent struct {
	Payload EventPayload `json:"swap"`
}

func (SwapAcceptedEvent) Kind() EventKind      { return EventSwapAccepted }
func (e SwapAcceptedEvent) Swap() EventPayload { return e.Payload }

type SwapCancelledEvent struct {
	Payload     EventPayload `json:"swap"`
	CancelledBy int64        `json:"cancelled_by"`
}

func (SwapCancelledEvent) Kind() EventKind      { return EventSwapCancelled }
func (e SwapCancelledEvent) Swap() EventPayload { return e.Payload }

// PartialCompletionEvent fires when one party has confirmed and the swap is
// waiting on the other.
type PartialCompletionEvent struct {
	Payload        EventPayload `json:"swap"`
	AwaitingUserID int64        `json:"awaiting_user_id"`
}

func (PartialCompletionEvent) Kind() EventKind      { return EventPartialCompletion }
func (e PartialCompletionEvent) Swap() EventPayload { return e.Payload }

type SwapFullyCompletedEvent struct {
	Payload EventPayload `json:"swap"`
}

func (SwapFullyCompletedEvent) Kind() EventKind      { return EventSwapFullyCompleted }
func (e SwapFullyCompletedEvent) Swap() EventPayload { return e.Payload }

// SwapReminderEvent is emitted by the background sweep for negotiations that
// have sat unanswered too long.
type SwapReminderEvent struct {
	Payload      EventPayload `json:"swap"`
	PendingSince time.Time    `json:"pending_since"`
}

func (SwapReminderEvent) Kind() EventKind      { return EventSwapReminder }
func (e SwapReminderEvent) Swap() EventPayload { return e.Payload }
