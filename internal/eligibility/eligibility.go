// Package eligibility decides which zones a parker may check into.
package eligibility

import "github.com/alfredjeanlab/parkgate/internal/model"

// Query is the session state the filter depends on.
type Query struct {
	UserType model.UserType

	// Verified is set once a subscription lookup succeeded for the current
	// user type. Subscription holds the verified record.
	Verified     bool
	Subscription *model.Subscription
}

// Admits reports whether a single zone is eligible for q. Rules apply in order:
// closed zones are never eligible; visitors need visitor availability;
// subscribers need subscriber availability and, once verified, a zone of
// their subscription's category.
func Admits(z model.Zone, q Query) bool {
	if !z.Open {
		return false
	}
	switch q.UserType {
	case model.UserVisitor:
		return z.AvailableForVisitors > 0
	case model.UserSubscriber:
		if z.AvailableForSubscribers <= 0 {
			return false
		}
		if q.Verified {
			return q.Subscription.Covers(z)
		}
		return true
	}
	return false
}

// Filter returns the eligible zones in their input order. With no user type
// selected nothing is eligible.
func Filter(zones []model.Zone, q Query) []model.Zone {
	out := make([]model.Zone, 0, len(zones))
	for _, z := range zones {
		if Admits(z, q) {
			out = append(out, z)
		}
	}
	return out
}
