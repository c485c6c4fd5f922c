package model

import (
	"encoding/json"
)

// UserType distinguishes the two kinds of parkers a gate serves.
type UserType string

const (
	UserVisitor    UserType = "visitor"
	UserSubscriber UserType = "subscriber"
)

// String returns the string representation of the user type.
func (u UserType) String() string {
	return string(u)
}

// IsValid checks whether the user type is a known value.
func (u UserType) IsValid() bool {
	switch u {
	case UserVisitor, UserSubscriber:
		return true
	}
	return false
}

// Zone is the canonical occupancy record for a partition of parking slots.
// Every field is authoritative from the server; the client never recomputes
// derived counts.
type Zone struct {
	ID                      string  `json:"zoneId"`
	Name                    string  `json:"name"`
	CategoryID              string  `json:"categoryId"`
	TotalSlots              int     `json:"totalSlots"`
	Occupied                int     `json:"occupied"`
	Free                    int     `json:"free"`
	Reserved                int     `json:"reserved"`
	AvailableForVisitors    int     `json:"availableForVisitors"`
	AvailableForSubscribers int     `json:"availableForSubscribers"`
	RateNormal              float64 `json:"rateNormal"`
	RateSpecial             float64 `json:"rateSpecial"`
	Open                    bool    `json:"open"`
	SpecialActive           bool    `json:"specialActive"`
}

// Key returns the registry key of the zone.
func (z Zone) Key() string {
	return z.ID
}

// ActiveRate returns the hourly rate currently charged in the zone.
func (z Zone) ActiveRate() float64 {
	if z.SpecialActive {
		return z.RateSpecial
	}
	return z.RateNormal
}

// AvailableFor returns the number of slots open to the given user type.
// Unknown user types have no availability.
func (z Zone) AvailableFor(u UserType) int {
	switch u {
	case UserVisitor:
		return z.AvailableForVisitors
	case UserSubscriber:
		return z.AvailableForSubscribers
	}
	return 0
}

// zoneWire mirrors Zone with pointer fields so missing fields can be told
// apart from zero values.
type zoneWire struct {
	ZoneID                  *string  `json:"zoneId"`
	ID                      *string  `json:"id"`
	Name                    *string  `json:"name"`
	CategoryID              *string  `json:"categoryId"`
	TotalSlots              *int     `json:"totalSlots"`
	Occupied                *int     `json:"occupied"`
	Free                    *int     `json:"free"`
	Reserved                *int     `json:"reserved"`
	AvailableForVisitors    *int     `json:"availableForVisitors"`
	AvailableForSubscribers *int     `json:"availableForSubscribers"`
	RateNormal              *float64 `json:"rateNormal"`
	RateSpecial             *float64 `json:"rateSpecial"`
	Open                    *bool    `json:"open"`
	SpecialActive           *bool    `json:"specialActive"`
}

// UnmarshalJSON decodes a zone and rejects partial records. The server
// sometimes keys zones by "id" instead of "zoneId"; both are accepted.
func (z *Zone) UnmarshalJSON(data []byte) error {
	var w zoneWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var ve ValidationError
	id := ""
	switch {
	case w.ZoneID != nil && *w.ZoneID != "":
		id = *w.ZoneID
	case w.ID != nil && *w.ID != "":
		id = *w.ID
	default:
		ve.Errors = append(ve.Errors, FieldError{Field: "zoneId", Message: "is required"})
	}

	str := func(field string, p *string) string {
		if p == nil {
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "is missing"})
			return ""
		}
		return *p
	}
	num := func(field string, p *int) int {
		if p == nil {
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "is missing"})
			return 0
		}
		return *p
	}
	rate := func(field string, p *float64) float64 {
		if p == nil {
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "is missing"})
			return 0
		}
		return *p
	}

	out := Zone{
		ID:                      id,
		Name:                    str("name", w.Name),
		CategoryID:              str("categoryId", w.CategoryID),
		TotalSlots:              num("totalSlots", w.TotalSlots),
		Occupied:                num("occupied", w.Occupied),
		Free:                    num("free", w.Free),
		Reserved:                num("reserved", w.Reserved),
		AvailableForVisitors:    num("availableForVisitors", w.AvailableForVisitors),
		AvailableForSubscribers: num("availableForSubscribers", w.AvailableForSubscribers),
		RateNormal:              rate("rateNormal", w.RateNormal),
		RateSpecial:             rate("rateSpecial", w.RateSpecial),
	}
	if w.Open == nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "open", Message: "is missing"})
	} else {
		out.Open = *w.Open
	}
	if w.SpecialActive != nil {
		out.SpecialActive = *w.SpecialActive
	}

	if ve.HasErrors() {
		return &ve
	}
	*z = out
	return nil
}
