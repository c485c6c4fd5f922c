package gate

import "github.com/alfredjeanlab/parkgate/internal/model"

// Phase is the gate-loading state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSnapshotLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseSnapshotLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	}
	return "idle"
}

// Verification is the subscription-verification sub-state.
type Verification int

const (
	Unverified Verification = iota
	Verifying
	Verified
	VerificationFailed
)

func (v Verification) String() string {
	switch v {
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	case VerificationFailed:
		return "failed"
	}
	return "unverified"
}

// CheckinState is the check-in sub-state.
type CheckinState int

const (
	CheckinIdle CheckinState = iota
	CheckinInFlight
	CheckinTicketIssued
)

func (c CheckinState) String() string {
	switch c {
	case CheckinInFlight:
		return "checking-in"
	case CheckinTicketIssued:
		return "ticket-issued"
	}
	return "ready"
}

// State is an immutable snapshot of a Session. Pointer fields are copies.
type State struct {
	Phase Phase
	Gate  *model.Gate

	UserType       model.UserType
	SubscriptionID string
	Verification   Verification
	Subscription   *model.Subscription

	SelectedZoneID string
	Checkin        CheckinState
	Ticket         *model.Ticket
	ShowTicket     bool

	// Zones is the registry in order; Eligible is the filtered subset for
	// the current user type and verification.
	Zones    []model.Zone
	Eligible []model.Zone
}
