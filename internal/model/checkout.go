package model

import (
	"math"
	"time"
)

// DefaultAmountTolerance is the rounding slack allowed when comparing a
// checkout total against the sum of its segments.
const DefaultAmountTolerance = 0.005

// BillingSegment is one rate interval of a checkout breakdown.
type BillingSegment struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Hours    float64   `json:"hours"`
	RateMode string    `json:"rateMode"`
	Rate     float64   `json:"rate"`
	Amount   float64   `json:"amount"`
}

// CheckoutResult is the server's billing breakdown for a ticket.
type CheckoutResult struct {
	TicketID      string           `json:"ticketId"`
	CheckinAt     time.Time        `json:"checkinAt"`
	CheckoutAt    time.Time        `json:"checkoutAt"`
	DurationHours float64          `json:"durationHours"`
	Breakdown     []BillingSegment `json:"breakdown"`
	Amount        float64          `json:"amount"`
}

// SegmentTotal sums the amounts of all billing segments.
func (r *CheckoutResult) SegmentTotal() float64 {
	var sum float64
	for _, s := range r.Breakdown {
		sum += s.Amount
	}
	return sum
}

// TotalMatches reports whether Amount equals the segment total within tol.
func (r *CheckoutResult) TotalMatches(tol float64) bool {
	return math.Abs(r.Amount-r.SegmentTotal()) <= tol
}
