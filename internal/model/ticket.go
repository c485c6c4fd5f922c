package model

import "time"

// Ticket is issued by a successful check-in.
type Ticket struct {
	ID             string    `json:"id"`
	ZoneID         string    `json:"zoneId"`
	GateID         string    `json:"gateId,omitempty"`
	Type           UserType  `json:"type"`
	CheckinAt      time.Time `json:"checkinAt"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
}

// CheckinRequest is the body of POST /tickets/checkin.
type CheckinRequest struct {
	GateID         string   `json:"gateId"`
	ZoneID         string   `json:"zoneId"`
	Type           UserType `json:"type"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
}

// CheckinResponse carries the created ticket and the authoritative state of
// the zone after check-in.
type CheckinResponse struct {
	Ticket    Ticket `json:"ticket"`
	ZoneState Zone   `json:"zoneState"`
}

// CheckoutRequest is the body of POST /tickets/checkout.
type CheckoutRequest struct {
	TicketID              string `json:"ticketId"`
	ForceConvertToVisitor bool   `json:"forceConvertToVisitor"`
}
