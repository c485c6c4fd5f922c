package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alfredjeanlab/parkgate/internal/client"
	"github.com/alfredjeanlab/parkgate/internal/model"
)

type fakeBackend struct {
	mu sync.Mutex

	tickets map[string]*model.Ticket
	subs    map[string]*model.Subscription
	subErr  error

	// checkoutFn decides the outcome of each checkout call.
	checkoutFn func(req model.CheckoutRequest) (*model.CheckoutResult, error)
	requests   []model.CheckoutRequest

	hold chan struct{}
}

func (b *fakeBackend) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Ticket not found"}
	}
	cp := *t
	return &cp, nil
}

func (b *fakeBackend) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subErr != nil {
		return nil, b.subErr
	}
	s, ok := b.subs[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Subscription not found"}
	}
	cp := *s
	return &cp, nil
}

func (b *fakeBackend) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if b.hold != nil {
		<-b.hold
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, *req)
	return b.checkoutFn(*req)
}

func (b *fakeBackend) sent() []model.CheckoutRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.CheckoutRequest(nil), b.requests...)
}

var (
	checkinAt  = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	checkoutAt = time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
)

func result(ticketID string) *model.CheckoutResult {
	return &model.CheckoutResult{
		TicketID:      ticketID,
		CheckinAt:     checkinAt,
		CheckoutAt:    checkoutAt,
		DurationHours: 3,
		Breakdown: []model.BillingSegment{
			{From: checkinAt, To: checkinAt.Add(2 * time.Hour), Hours: 2, RateMode: "normal", Rate: 5, Amount: 10},
			{From: checkinAt.Add(2 * time.Hour), To: checkoutAt, Hours: 1, RateMode: "special", Rate: 8, Amount: 8},
		},
		Amount: 18,
	}
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		tickets: map[string]*model.Ticket{
			"t_001": {ID: "t_001", ZoneID: "zone_a", Type: model.UserSubscriber, SubscriptionID: "sub_001", CheckinAt: checkinAt},
			"t_002": {ID: "t_002", ZoneID: "zone_b", Type: model.UserVisitor, CheckinAt: checkinAt},
		},
		subs: map[string]*model.Subscription{
			"sub_001": {ID: "sub_001", UserName: "Ali", Category: "cat_premium", Active: true,
				Cars: []model.Car{{Plate: "ABC-123"}}},
		},
		checkoutFn: func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
			return result(req.TicketID), nil
		},
	}
}

func TestLookup_Success(t *testing.T) {
	b := newBackend()
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID(" t_001 ")

	res, err := f.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18.0, res.Amount)
	assert.True(t, res.TotalMatches(model.DefaultAmountTolerance))

	assert.Equal(t, []model.CheckoutRequest{{TicketID: "t_001"}}, b.sent())

	st := f.State()
	assert.Equal(t, PhaseCompleted, st.Phase)
	require.NotNil(t, st.Subscription)
	assert.Equal(t, "Ali", st.Subscription.UserName)
	require.NotNil(t, st.Result)
	assert.Len(t, st.Result.Breakdown, 2)
	assert.False(t, st.ConversionOffered)
}

func TestLookup_RequiresTicketID(t *testing.T) {
	f := New(newBackend(), nil)
	_, err := f.Lookup(context.Background())
	assert.ErrorIs(t, err, ErrTicketIDRequired)
	assert.Equal(t, PhaseIdle, f.State().Phase)
}

func TestLookup_TicketNotFound(t *testing.T) {
	b := newBackend()
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_404")

	_, err := f.Lookup(context.Background())
	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Ticket not found", fe.Message)
	assert.Equal(t, PhaseFailed, f.State().Phase)
	assert.Empty(t, b.sent(), "no checkout without a ticket")
}

func TestLookup_SubscriptionFetchIsBestEffort(t *testing.T) {
	b := newBackend()
	b.subErr = errors.New("timeout")
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")

	_, err := f.Lookup(context.Background())
	require.NoError(t, err)
	st := f.State()
	assert.Nil(t, st.Subscription)
	assert.Equal(t, PhaseCompleted, st.Phase)
}

func TestLookup_VisitorTicketSkipsSubscription(t *testing.T) {
	b := newBackend()
	b.subErr = errors.New("must not be called")
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_002")

	_, err := f.Lookup(context.Background())
	require.NoError(t, err)
	assert.Nil(t, f.State().Subscription)
}

// Scenario: checkout of t_001 fails with a mismatch; converting re-issues the
// checkout with the force flag and clears the offer.
func TestLookup_MismatchOffersConversion(t *testing.T) {
	b := newBackend()
	b.checkoutFn = func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
		if !req.ForceConvertToVisitor {
			return nil, &client.APIError{StatusCode: 409, Message: "Subscription plate mismatch"}
		}
		return result(req.TicketID), nil
	}
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")

	_, err := f.Lookup(context.Background())
	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Subscription plate mismatch", fe.Message)

	st := f.State()
	assert.True(t, st.ConversionOffered)
	assert.Equal(t, PhaseConversionOffered, st.Phase)
	assert.Nil(t, st.Result)

	res, err := f.ConvertToVisitor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t_001", res.TicketID)

	assert.Equal(t, []model.CheckoutRequest{
		{TicketID: "t_001"},
		{TicketID: "t_001", ForceConvertToVisitor: true},
	}, b.sent())

	st = f.State()
	assert.False(t, st.ConversionOffered)
	assert.Equal(t, PhaseCompleted, st.Phase)
	require.NotNil(t, st.Result)
}

func TestLookup_OtherFailureDoesNotOfferConversion(t *testing.T) {
	b := newBackend()
	b.checkoutFn = func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
		return nil, &client.APIError{StatusCode: 409, Message: "Ticket already checked out"}
	}
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")

	_, err := f.Lookup(context.Background())
	require.Error(t, err)
	assert.False(t, f.State().ConversionOffered)
	assert.Equal(t, PhaseFailed, f.State().Phase)

	_, err = f.ConvertToVisitor(context.Background())
	assert.ErrorIs(t, err, ErrNoConversion)
}

func TestLookup_TransportFailureDoesNotOfferConversion(t *testing.T) {
	b := newBackend()
	b.checkoutFn = func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
		return nil, errors.New("subscription service unreachable")
	}
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")

	_, err := f.Lookup(context.Background())
	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, MsgCheckoutFailed, fe.Message)
	assert.False(t, f.State().ConversionOffered)
}

func TestConvertToVisitor_FailureKeepsOffer(t *testing.T) {
	b := newBackend()
	b.checkoutFn = func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
		if !req.ForceConvertToVisitor {
			return nil, &client.APIError{StatusCode: 409, Message: "Subscription expired"}
		}
		return nil, &client.APIError{StatusCode: 500, Message: "internal error"}
	}
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")
	_, _ = f.Lookup(context.Background())

	_, err := f.ConvertToVisitor(context.Background())
	require.Error(t, err)
	assert.True(t, f.State().ConversionOffered, "operator can retry the conversion")

	f.DismissConversion()
	st := f.State()
	assert.False(t, st.ConversionOffered)
	assert.Equal(t, PhaseFailed, st.Phase)
}

func TestReset_ClearsEverything(t *testing.T) {
	b := newBackend()
	b.checkoutFn = func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
		return nil, &client.APIError{StatusCode: 409, Message: "Subscription inactive"}
	}
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")
	_, _ = f.Lookup(context.Background())
	require.True(t, f.State().ConversionOffered)
	require.NotNil(t, f.State().Subscription)

	f.Reset()
	assert.Equal(t, State{}, f.State())
}

func TestReset_DiscardsInFlightCheckout(t *testing.T) {
	b := newBackend()
	b.hold = make(chan struct{})
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_001")

	done := make(chan error, 1)
	go func() {
		_, err := f.Lookup(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.State().Phase == PhaseInFlight }, time.Second, time.Millisecond)

	_, err := f.Lookup(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	f.Reset()
	close(b.hold)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, State{}, f.State())
}

func TestReset_BlocksOverlappingCheckout(t *testing.T) {
	b := newBackend()
	b.hold = make(chan struct{})
	f := New(b, zaptest.NewLogger(t))
	f.SetTicketID("t_002")

	done := make(chan error, 1)
	go func() {
		_, err := f.Lookup(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.State().Phase == PhaseInFlight }, time.Second, time.Millisecond)

	f.Reset()
	f.SetTicketID("t_002")
	_, err := f.Lookup(context.Background())
	assert.ErrorIs(t, err, ErrBusy, "the first checkout has not returned")

	close(b.hold)
	assert.ErrorIs(t, <-done, ErrStale)
	assert.Len(t, b.sent(), 1)

	res, err := f.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t_002", res.TicketID)
	assert.Len(t, b.sent(), 2)
}

func TestCheckout_LogsTotalMismatch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := newBackend()
	b.checkoutFn = func(req model.CheckoutRequest) (*model.CheckoutResult, error) {
		r := result(req.TicketID)
		r.Amount = 20
		return r, nil
	}
	f := New(b, zap.New(core))
	f.SetTicketID("t_002")

	res, err := f.Lookup(context.Background())
	require.NoError(t, err, "a mismatched total is logged, not rejected")
	assert.Equal(t, 20.0, res.Amount)
	assert.Equal(t, 1, logs.FilterMessage("checkout total does not match breakdown").Len())
}

func TestOffersConversion(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Subscription plate mismatch", true},
		{"subscription category MISMATCH", true},
		{"Subscription expired", true},
		{"Subscription is inactive", true},
		{"Vehicle mismatch", true},
		{"Ticket already checked out", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OffersConversion(tt.msg), tt.msg)
	}
}
