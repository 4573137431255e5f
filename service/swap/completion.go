package swap

import (
	"time"

	"bookswap/model"
)

// Completion tracking is pure bookkeeping over the two per-party
// timestamps; "fully completed" is derived, never stored separately.

func completedAtFor(s *model.SwapRequest, p model.SwapParty) *time.Time {
	if p == model.PartyRequester {
		return s.RequesterCompletedAt
	}
	return s.OwnerCompletedAt
}

func ratingFor(s *model.SwapRequest, p model.SwapParty) *int {
	if p == model.PartyRequester {
		return s.RequesterRating
	}
	return s.OwnerRating
}

// bothConfirmed reports dual confirmation.
func bothConfirmed(s *model.SwapRequest) bool {
	return s.RequesterCompletedAt != nil && s.OwnerCompletedAt != nil
}

// canAttachRating allows a party to add a missing rating to an already
// completed swap. Own rating must still be null; anything else is tampering.
func canAttachRating(s *model.SwapRequest, p model.SwapParty) bool {
	return s.Status == model.SwapCompleted && ratingFor(s, p) == nil
}

func recordCompletion(s *model.SwapRequest, p model.SwapParty, at time.Time, rating *int, feedback *string) {
	if p == model.PartyRequester {
		s.RequesterCompletedAt = &at
		s.RequesterRating = rating
		s.RequesterFeedback = feedback
		return
	}
	s.OwnerCompletedAt = &at
	s.OwnerRating = rating
	s.OwnerFeedback = feedback
}

func partyUserID(s *model.SwapRequest, p model.SwapParty) int64 {
	if p == model.PartyRequester {
		return s.RequesterID
	}
	return s.OwnerID
}
