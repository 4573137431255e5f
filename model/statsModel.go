// model/stats.go
package model

// UserSwapStats is derived by scanning swap rows; there is no write path.
type UserSwapStats struct {
	UserID          int64    `json:"user_id"`
	TotalSwaps      int64    `json:"total_swaps"`
	CompletedSwaps  int64    `json:"completed_swaps"`
	CancelledSwaps  int64    `json:"cancelled_swaps"`
	AverageRating   *float64 `json:"average_rating,omitempty"`
	CompletionRate  *float64 `json:"completion_rate,omitempty"`
	RatingsReceived int64    `json:"ratings_received"`
}
