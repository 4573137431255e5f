package swap

type CreateSwapReq struct {
	BookID        int64   `json:"book_id" validate:"required,gt=0"`
	OfferedBookID *int64  `json:"offered_book_id,omitempty" validate:"omitempty,gt=0"`
	Message       *string `json:"message,omitempty"`
}

type CounterOfferReq struct {
	CounterBookID int64   `json:"counter_book_id" validate:"required,gt=0"`
	Message       *string `json:"message,omitempty"`
}

type CompleteReq struct {
	Rating   *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Feedback *string `json:"feedback,omitempty"`
}

type AttachRatingReq struct {
	Rating   int     `json:"rating" validate:"required,min=1,max=5"`
	Feedback *string `json:"feedback,omitempty"`
}
