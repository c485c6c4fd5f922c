package model

// Car is a vehicle registered on a subscription.
type Car struct {
	Plate string `json:"plate"`
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
}

// Subscription is a subscriber's parking entitlement. It is fetched on demand
// for verification and held only in session memory.
type Subscription struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
	Cars     []Car  `json:"cars,omitempty"`
}

// Covers reports whether the subscription's category matches the zone's.
func (s *Subscription) Covers(z Zone) bool {
	return s != nil && s.Category == z.CategoryID
}
