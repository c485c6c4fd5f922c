// Package checkout runs the checkpoint station flow: look a ticket up, check
// it out, and offer visitor conversion when the backend rejects a
// subscriber's checkout.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/parkgate/internal/client"
	"github.com/alfredjeanlab/parkgate/internal/model"
)

// Backend is the subset of the parking API the checkout flow uses.
type Backend interface {
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}

// Phase is the state of a Flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInFlight
	PhaseCompleted
	PhaseFailed
	PhaseConversionOffered
)

func (p Phase) String() string {
	switch p {
	case PhaseInFlight:
		return "in-flight"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseConversionOffered:
		return "conversion-offered"
	}
	return "idle"
}

// User-visible messages.
const (
	MsgTicketIDRequired = "Please enter ticket ID"
	MsgTicketNotFound   = "Ticket not found"
	MsgCheckoutFailed   = "Checkout failed"
	MsgNoConversion     = "No conversion to offer"
	MsgBusy             = "Please wait for the current request to finish"
)

var (
	ErrTicketIDRequired = errors.New(MsgTicketIDRequired)
	ErrNoConversion     = errors.New(MsgNoConversion)
	ErrBusy             = errors.New(MsgBusy)
	// ErrStale is returned when the flow was reset while a call was in flight.
	ErrStale = errors.New("stale response discarded")
)

// FailureError is a failed backend call. Message is shown to the operator.
type FailureError struct {
	Message string
	Err     error
}

func (e *FailureError) Error() string { return e.Message }

func (e *FailureError) Unwrap() error { return e.Err }

// conversionHints mark a checkout rejection caused by the subscription.
var conversionHints = []string{"subscription", "mismatch", "expired", "inactive"}

// OffersConversion reports whether a checkout failure message describes a
// subscription problem that checking out as a visitor would resolve.
func OffersConversion(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range conversionHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// State is a snapshot of a Flow. Pointer fields are copies.
type State struct {
	Phase             Phase
	TicketID          string
	Ticket            *model.Ticket
	Subscription      *model.Subscription
	Result            *model.CheckoutResult
	ConversionOffered bool
}

// Flow is the checkout state machine. One backend call sequence runs at a time.
type Flow struct {
	backend   Backend
	log       *zap.Logger
	tolerance float64

	mu  sync.Mutex
	gen uint64
	// inFlight is held by the running call sequence; Reset leaves it set.
	inFlight bool

	phase        Phase
	ticketID     string
	ticket       *model.Ticket
	subscription *model.Subscription
	result       *model.CheckoutResult
	offer        bool
}

// New creates an idle flow.
func New(backend Backend, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{backend: backend, log: log, tolerance: model.DefaultAmountTolerance}
}

// SetTicketID records the ticket id typed by the operator.
func (f *Flow) SetTicketID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticketID = id
}

// Lookup fetches the ticket, fetches its subscription when it has one, then
// checks the ticket out. A failed subscription fetch only hides the
// subscriber details. A checkout rejected for a subscription reason raises
// the conversion offer.
func (f *Flow) Lookup(ctx context.Context) (*model.CheckoutResult, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	id := strings.TrimSpace(f.ticketID)
	if id == "" {
		f.mu.Unlock()
		return nil, ErrTicketIDRequired
	}
	f.inFlight = true
	f.phase = PhaseInFlight
	f.ticket, f.subscription, f.result, f.offer = nil, nil, nil, false
	gen := f.gen
	f.mu.Unlock()
	defer f.done()

	log := f.log.With(zap.String("ticket_id", id))

	ticket, err := f.backend.GetTicket(ctx, id)
	if err != nil {
		log.Info("ticket lookup failed", zap.Error(err))
		return nil, f.fail(gen, &FailureError{Message: client.ErrorMessage(err, MsgTicketNotFound), Err: err}, false)
	}
	if !f.apply(gen, func() { f.ticket = ticket }) {
		return nil, ErrStale
	}

	if ticket.SubscriptionID != "" {
		sub, err := f.backend.GetSubscription(ctx, ticket.SubscriptionID)
		if err != nil {
			log.Debug("subscription details unavailable", zap.String("subscription_id", ticket.SubscriptionID), zap.Error(err))
		} else if !f.apply(gen, func() { f.subscription = sub }) {
			return nil, ErrStale
		}
	}

	return f.checkout(ctx, gen, id, false)
}

// ConvertToVisitor re-issues the checkout with forceConvertToVisitor set. It is
// only allowed while the conversion offer is raised; success clears the offer.
func (f *Flow) ConvertToVisitor(ctx context.Context) (*model.CheckoutResult, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if !f.offer || f.ticket == nil {
		f.mu.Unlock()
		return nil, ErrNoConversion
	}
	id := f.ticket.ID
	f.inFlight = true
	f.phase = PhaseInFlight
	gen := f.gen
	f.mu.Unlock()
	defer f.done()

	return f.checkout(ctx, gen, id, true)
}

func (f *Flow) checkout(ctx context.Context, gen uint64, ticketID string, force bool) (*model.CheckoutResult, error) {
	log := f.log.With(zap.String("ticket_id", ticketID), zap.Bool("force_convert", force))

	result, err := f.backend.Checkout(ctx, &model.CheckoutRequest{
		TicketID:              ticketID,
		ForceConvertToVisitor: force,
	})
	if err != nil {
		msg := client.ErrorMessage(err, MsgCheckoutFailed)
		var apiErr *client.APIError
		offer := errors.As(err, &apiErr) && OffersConversion(msg)
		log.Info("checkout rejected", zap.Error(err), zap.Bool("conversion_offered", offer))
		return nil, f.fail(gen, &FailureError{Message: msg, Err: err}, offer || force)
	}

	if !result.TotalMatches(f.tolerance) {
		log.Warn("checkout total does not match breakdown",
			zap.Float64("amount", result.Amount),
			zap.Float64("segment_total", result.SegmentTotal()))
	}

	ok := f.apply(gen, func() {
		f.result = result
		f.offer = false
		f.phase = PhaseCompleted
	})
	if !ok {
		return nil, ErrStale
	}
	log.Info("checkout completed", zap.Float64("amount", result.Amount))
	out := *result
	return &out, nil
}

// fail records a failed call. When offer is set the flow waits for a
// conversion decision instead of failing outright.
func (f *Flow) fail(gen uint64, err error, offer bool) error {
	ok := f.apply(gen, func() {
		f.offer = offer
		if offer {
			f.phase = PhaseConversionOffered
		} else {
			f.phase = PhaseFailed
		}
	})
	if !ok {
		return ErrStale
	}
	return err
}

func (f *Flow) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
}

// apply runs fn under the lock if the flow has not been reset since gen.
func (f *Flow) apply(gen uint64, fn func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return false
	}
	fn()
	return true
}

// DismissConversion declines the conversion offer.
func (f *Flow) DismissConversion() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offer {
		f.offer = false
		f.phase = PhaseFailed
	}
}

// Reset clears the ticket id, result, subscription details and conversion
// offer together. A call still in flight is discarded when it returns, and
// no new lookup starts until it has.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.phase = PhaseIdle
	f.ticketID = ""
	f.ticket = nil
	f.subscription = nil
	f.result = nil
	f.offer = false
}

// State returns a snapshot of the flow.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := State{
		Phase:             f.phase,
		TicketID:          f.ticketID,
		ConversionOffered: f.offer,
	}
	if f.ticket != nil {
		t := *f.ticket
		st.Ticket = &t
	}
	if f.subscription != nil {
		s := *f.subscription
		st.Subscription = &s
	}
	if f.result != nil {
		r := *f.result
		st.Result = &r
	}
	return st
}
