package gate

import "errors"

// RejectedError is an operator action refused by a guard. Its message is
// shown to the operator as-is.
type RejectedError struct {
	msg string
}

func (e *RejectedError) Error() string { return e.msg }

func rejected(msg string) *RejectedError { return &RejectedError{msg: msg} }

// Guard failures.
var (
	ErrGateNotFound           = rejected("Gate not found")
	ErrNotReady               = rejected("Gate is not loaded")
	ErrUnknownUserType        = rejected("Please select visitor or subscriber")
	ErrUserTypeRequired       = rejected("Please select user type")
	ErrNotSubscriber          = rejected("Subscription verification is only for subscribers")
	ErrSubscriptionIDRequired = rejected("Please enter subscription ID")
	ErrSubscriptionInactive   = rejected("Subscription is not active")
	ErrCategoryMismatch       = rejected("Subscription not valid for this zone category")
	ErrZoneRequired           = rejected("Please select a zone")
	ErrUnknownZone            = rejected("Zone not found")
	ErrZoneClosed             = rejected("Zone is closed")
	ErrZoneFull               = rejected("No available slots in this zone")
	ErrVerifyFirst            = rejected("Please verify subscription first")
	ErrSubscriptionZone       = rejected("Subscription not valid for selected zone")
	ErrTicketIssued           = rejected("Start a new check-in first")
	ErrBusy                   = rejected("Please wait for the current request to finish")
)

// ErrStale is returned when a response arrives for a gate or verification
// that is no longer current. The response is discarded.
var ErrStale = errors.New("stale response discarded")

// Messages for failed backend calls.
const (
	MsgLoadFailed          = "Failed to load gate data"
	MsgInvalidSubscription = "Invalid subscription ID"
	MsgCheckinFailed       = "Check-in failed"
)

// FailureError is a failed backend call. Message is what the operator sees;
// Err is the underlying cause.
type FailureError struct {
	Message string
	Err     error
}

func (e *FailureError) Error() string { return e.Message }

func (e *FailureError) Unwrap() error { return e.Err }
