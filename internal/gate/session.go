// Package gate implements the check-in session run at a gate terminal.
//
// A Session loads a gate's zones into the shared zone registry, subscribes the
// push channel to the gate, and walks the operator through user-type
// selection, optional subscription verification, zone selection and
// check-in. Every backend response is checked against the session generation
// before it is applied, so a response that lands after the operator left the
// gate (or switched user type) changes nothing.
package gate

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/parkgate/internal/client"
	"github.com/alfredjeanlab/parkgate/internal/eligibility"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/registry"
)

// Backend is the subset of the parking API a gate session uses.
type Backend interface {
	ListGates(ctx context.Context) ([]model.Gate, error)
	ListZones(ctx context.Context, gateID string) ([]model.Zone, error)
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)
	Checkin(ctx context.Context, req *model.CheckinRequest) (*model.CheckinResponse, error)
}

// PushChannel is the handle a session uses to follow its gate's updates.
type PushChannel interface {
	Connect()
	Subscribe(gateID string)
	Unsubscribe()
}

// Session is the state machine for one gate terminal. It is safe for
// concurrent use; backend calls are made without holding its lock. Push
// channel calls are made while holding it, so a PushChannel must not block.
type Session struct {
	backend Backend
	push    PushChannel
	zones   *registry.Registry[model.Zone]
	log     *zap.Logger

	mu sync.Mutex
	// gen changes whenever the active gate does (Enter, Leave).
	gen uint64
	// verifyGen changes whenever a verification result would no longer apply.
	verifyGen uint64

	phase          Phase
	gate           *model.Gate
	userType       model.UserType
	subscriptionID string
	verification   Verification
	subscription   *model.Subscription
	selectedZone   string
	checkin        CheckinState
	ticket         *model.Ticket
	showTicket     bool
}

// New creates an idle session. push may be nil when the terminal runs without
// live updates.
func New(backend Backend, push PushChannel, zones *registry.Registry[model.Zone], log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		backend: backend,
		push:    push,
		zones:   zones,
		log:     log,
	}
}

// Enter loads gateID and makes it the active gate. Any previously active gate
// is left first. On success the session is Ready; on failure it is Idle with
// no current gate.
func (s *Session) Enter(ctx context.Context, gateID string) error {
	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.leaveLocked()
	}
	s.gen++
	gen := s.gen
	s.phase = PhaseSnapshotLoading
	// Subscribe before the snapshot so no update published after it is missed.
	// Doing it under the lock orders it before any Leave's unsubscribe.
	if s.push != nil {
		s.push.Connect()
		s.push.Subscribe(gateID)
	}
	s.mu.Unlock()

	log := s.log.With(zap.String("gate_id", gateID))

	gates, err := s.backend.ListGates(ctx)
	if err != nil {
		log.Warn("loading gates failed", zap.Error(err))
		return s.abortEnter(gen, &FailureError{Message: MsgLoadFailed, Err: err})
	}
	gate, ok := model.FindGate(gates, gateID)
	if !ok {
		log.Warn("gate not found")
		return s.abortEnter(gen, ErrGateNotFound)
	}

	zones, err := s.backend.ListZones(ctx, gateID)
	if err != nil {
		log.Warn("loading zones failed", zap.Error(err))
		return s.abortEnter(gen, &FailureError{Message: MsgLoadFailed, Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		log.Debug("discarding snapshot for inactive gate")
		return ErrStale
	}
	s.zones.ReplaceAll(zones)
	s.gate = &gate
	s.phase = PhaseReady
	log.Info("gate ready", zap.Int("zones", len(zones)))
	return nil
}

func (s *Session) abortEnter(gen uint64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrStale
	}
	s.leaveLocked()
	return cause
}

// Leave tears the gate down: the push channel is unsubscribed, the registry
// is emptied and all session state returns to defaults. Responses still in
// flight are discarded when they arrive.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked()
}

func (s *Session) leaveLocked() {
	s.gen++
	s.verifyGen++
	if s.push != nil {
		s.push.Unsubscribe()
	}
	s.zones.Clear()
	s.phase = PhaseIdle
	s.gate = nil
	s.resetCycleLocked()
}

// Reset starts a new check-in cycle at the same gate. The gate and the zone
// registry are kept.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkin == CheckinInFlight {
		return ErrBusy
	}
	s.verifyGen++
	s.resetCycleLocked()
	return nil
}

func (s *Session) resetCycleLocked() {
	s.userType = ""
	s.subscriptionID = ""
	s.verification = Unverified
	s.subscription = nil
	s.selectedZone = ""
	s.checkin = CheckinIdle
	s.ticket = nil
	s.showTicket = false
}

// SelectUserType switches between visitor and subscriber. The zone selection
// and any verification result are cleared; the typed subscription id is kept.
func (s *Session) SelectUserType(u model.UserType) error {
	if !u.IsValid() {
		return ErrUnknownUserType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}

	s.userType = u
	s.selectedZone = ""
	s.clearVerificationLocked()
	return nil
}

// SetSubscriptionID records the subscription id typed by the operator.
// Changing it invalidates an earlier verification.
func (s *Session) SetSubscriptionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.subscriptionID {
		return
	}
	s.subscriptionID = id
	s.clearVerificationLocked()
}

func (s *Session) clearVerificationLocked() {
	s.verifyGen++
	s.verification = Unverified
	s.subscription = nil
}

// VerifySubscription looks up the typed subscription id. The subscription
// must be active and, when a zone is already selected, of that zone's
// category.
func (s *Session) VerifySubscription(ctx context.Context) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.userType != model.UserSubscriber {
		s.mu.Unlock()
		return ErrNotSubscriber
	}
	id := strings.TrimSpace(s.subscriptionID)
	if id == "" {
		s.mu.Unlock()
		return ErrSubscriptionIDRequired
	}
	if s.verification == Verifying {
		s.mu.Unlock()
		return ErrBusy
	}
	s.verification = Verifying
	s.subscription = nil
	gen, vgen := s.gen, s.verifyGen
	s.mu.Unlock()

	sub, err := s.backend.GetSubscription(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || vgen != s.verifyGen {
		return ErrStale
	}

	log := s.log.With(zap.String("subscription_id", id))
	switch {
	case err != nil:
		log.Info("subscription lookup failed", zap.Error(err))
		s.verification = VerificationFailed
		return &FailureError{Message: MsgInvalidSubscription, Err: err}
	case !sub.Active:
		s.verification = VerificationFailed
		return ErrSubscriptionInactive
	}
	if s.selectedZone != "" {
		if z, ok := s.zones.Get(s.selectedZone); ok && !sub.Covers(z) {
			s.verification = VerificationFailed
			return ErrCategoryMismatch
		}
	}

	s.verification = Verified
	s.subscription = sub
	log.Info("subscription verified", zap.String("category", sub.Category))
	return nil
}

// SelectZone selects zoneID for check-in. Closed zones and zones with no
// availability for the current user type are rejected without a state change.
func (s *Session) SelectZone(zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	if s.checkin == CheckinInFlight {
		return ErrBusy
	}
	if s.userType == "" {
		return ErrUserTypeRequired
	}

	z, ok := s.zones.Get(zoneID)
	if !ok {
		return ErrUnknownZone
	}
	if err := checkAvailable(z, s.userType); err != nil {
		return err
	}
	s.selectedZone = zoneID
	return nil
}

func checkAvailable(z model.Zone, u model.UserType) error {
	if !z.Open {
		return ErrZoneClosed
	}
	if z.AvailableFor(u) <= 0 {
		return ErrZoneFull
	}
	return nil
}

// Checkin issues a ticket for the selected zone. The zone's post-check-in
// state from the response is upserted into the registry before the ticket is
// surfaced.
func (s *Session) Checkin(ctx context.Context) (*model.Ticket, error) {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	req, err := s.checkinRequestLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.checkin = CheckinInFlight
	gen := s.gen
	s.mu.Unlock()

	log := s.log.With(zap.String("gate_id", req.GateID), zap.String("zone_id", req.ZoneID), zap.Stringer("type", req.Type))

	resp, err := s.backend.Checkin(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		log.Debug("discarding check-in response for inactive gate")
		return nil, ErrStale
	}
	if err != nil {
		s.checkin = CheckinIdle
		log.Warn("check-in failed", zap.Error(err))
		return nil, &FailureError{Message: client.ErrorMessage(err, MsgCheckinFailed), Err: err}
	}

	s.zones.Upsert(resp.ZoneState)
	ticket := resp.Ticket
	s.ticket = &ticket
	s.showTicket = true
	s.checkin = CheckinTicketIssued
	log.Info("ticket issued", zap.String("ticket_id", ticket.ID))

	out := ticket
	return &out, nil
}

// checkinRequestLocked applies the check-in guards against the current
// registry and builds the request.
func (s *Session) checkinRequestLocked() (*model.CheckinRequest, error) {
	switch s.checkin {
	case CheckinInFlight:
		return nil, ErrBusy
	case CheckinTicketIssued:
		return nil, ErrTicketIssued
	}
	if s.selectedZone == "" {
		return nil, ErrZoneRequired
	}
	if s.userType == "" {
		return nil, ErrUserTypeRequired
	}
	z, ok := s.zones.Get(s.selectedZone)
	if !ok {
		return nil, ErrUnknownZone
	}

	req := &model.CheckinRequest{
		GateID: s.gate.ID,
		ZoneID: z.ID,
		Type:   s.userType,
	}
	if s.userType == model.UserSubscriber {
		if s.verification != Verified || s.subscription == nil {
			return nil, ErrVerifyFirst
		}
		if !s.subscription.Covers(z) {
			return nil, ErrSubscriptionZone
		}
		req.SubscriptionID = s.subscription.ID
	}
	// Availability may have changed since the zone was selected.
	if err := checkAvailable(z, s.userType); err != nil {
		return nil, err
	}
	return req, nil
}

// DismissTicket hides the ticket display. The ticket stays until Reset.
func (s *Session) DismissTicket() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTicket = false
}

func (s *Session) readyLocked() error {
	if s.phase != PhaseReady {
		return ErrNotReady
	}
	return nil
}

func (s *Session) queryLocked() eligibility.Query {
	return eligibility.Query{
		UserType:     s.userType,
		Verified:     s.verification == Verified,
		Subscription: s.subscription,
	}
}

// EligibleZones returns the zones the current user may check into, in
// registry order.
func (s *Session) EligibleZones() []model.Zone {
	s.mu.Lock()
	q := s.queryLocked()
	s.mu.Unlock()
	return eligibility.Filter(s.zones.List(), q)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Phase:          s.phase,
		UserType:       s.userType,
		SubscriptionID: s.subscriptionID,
		Verification:   s.verification,
		SelectedZoneID: s.selectedZone,
		Checkin:        s.checkin,
		ShowTicket:     s.showTicket,
		Zones:          s.zones.List(),
	}
	if s.gate != nil {
		g := *s.gate
		st.Gate = &g
	}
	if s.subscription != nil {
		sub := *s.subscription
		st.Subscription = &sub
	}
	if s.ticket != nil {
		t := *s.ticket
		st.Ticket = &t
	}
	st.Eligible = eligibility.Filter(st.Zones, s.queryLocked())
	return st
}
