package rating

import (
	"fmt"
	"time"
)

const (
	MinValue = 1
	MaxValue = 5
)

var ErrInvalidValue = fmt.Errorf("rating must be between %d and %d", MinValue, MaxValue)

type Rating struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	StoreID   int64     `json:"storeId"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rater is a rating joined with the identity that submitted it.
type Rater struct {
	UserID  int64     `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Value   int       `json:"rating"`
	RatedAt time.Time `json:"ratedAt"`
}

func ValidateValue(v int) error {
	if v < MinValue || v > MaxValue {
		return ErrInvalidValue
	}
	return nil
}

// Stats are the raw totals for one store.
type Stats struct {
	Sum   int64
	Count int64
}

type Aggregate struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// NewAggregate is the only place an average is derived. It rounds half-up
// to one decimal using integer arithmetic so 1.25 never becomes 1.2.
func NewAggregate(s Stats) Aggregate {
	if s.Count <= 0 {
		return Aggregate{}
	}

	tenths := (20*s.Sum + s.Count) / (2 * s.Count)

	return Aggregate{
		Average: float64(tenths) / 10,
		Count:   s.Count,
	}
}

// AggregateOf is a convenience for callers that hold the values themselves.
func AggregateOf(values ...int) Aggregate {
	var s Stats
	for _, v := range values {
		s.Sum += int64(v)
		s.Count++
	}
	return NewAggregate(s)
}

type SubmitRequest struct {
	StoreID int64 `json:"storeId" binding:"required,min=1"`
	Value   *int  `json:"rating" binding:"required"`
}
