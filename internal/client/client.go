// Package client provides the interface the parking terminal uses to reach the
// backend and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

// ParkingClient is the interface every terminal flow uses to communicate with
// the parking backend. It is implemented by HTTPClient.
type ParkingClient interface {
	// Auth
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)

	// Master data
	ListGates(ctx context.Context) ([]model.Gate, error)
	ListZones(ctx context.Context, gateID string) ([]model.Zone, error)

	// Subscriptions
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)

	// Tickets
	Checkin(ctx context.Context, req *model.CheckinRequest) (*model.CheckinResponse, error)
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)

	// Admin
	ParkingState(ctx context.Context) ([]model.ParkingState, error)
	SetZoneOpen(ctx context.Context, zoneID string, open bool) error

	// Lifecycle
	Close() error
}

// TokenSource supplies the bearer token attached to authenticated calls.
// An empty token means the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns the token.
func (s StaticToken) Token() string { return string(s) }
