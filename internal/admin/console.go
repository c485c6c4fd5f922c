// Package admin backs the administrative console: the live parking-state
// report, opening and closing zones, and the audit log of admin actions.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/registry"
)

// Backend is the subset of the parking API the console uses.
type Backend interface {
	ParkingState(ctx context.Context) ([]model.ParkingState, error)
	SetZoneOpen(ctx context.Context, zoneID string, open bool) error
}

var (
	// ErrZoneNotFound is returned when toggling a zone missing from the report.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrReportNotRefreshed wraps a failed refresh after a toggle that did
	// take effect and was recorded in the audit log.
	ErrReportNotRefreshed = errors.New("zone toggled; refreshing report")
)

// Console holds the parking-state report and the audit log.
type Console struct {
	backend Backend
	report  *registry.Registry[model.ParkingState]
	audit   *registry.AuditLog
	log     *zap.Logger

	// AdminID is recorded on locally appended audit entries.
	AdminID string
	now     func() time.Time
}

// New creates a console. audit is shared with the push channel so entries
// from other terminals and local actions land in the same log.
func New(backend Backend, audit *registry.AuditLog, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{
		backend: backend,
		report:  registry.New[model.ParkingState](),
		audit:   audit,
		log:     log,
		now:     time.Now,
	}
}

// Report returns the registry holding the parking-state rows.
func (c *Console) Report() *registry.Registry[model.ParkingState] {
	return c.report
}

// Audit returns the audit log.
func (c *Console) Audit() *registry.AuditLog {
	return c.audit
}

// Refresh replaces the report with a fresh snapshot.
func (c *Console) Refresh(ctx context.Context) error {
	rows, err := c.backend.ParkingState(ctx)
	if err != nil {
		return fmt.Errorf("loading parking state: %w", err)
	}
	c.report.ReplaceAll(rows)
	return nil
}

// ToggleZone flips a zone between open and closed, records the action in the
// audit log and refreshes the report. The zone must be present in the report.
func (c *Console) ToggleZone(ctx context.Context, zoneID string) error {
	row, ok := c.report.Get(zoneID)
	if !ok {
		c.log.Error("toggle for unknown zone", zap.String("zone_id", zoneID))
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zoneID)
	}

	open := !row.Open
	if err := c.backend.SetZoneOpen(ctx, zoneID, open); err != nil {
		return fmt.Errorf("setting zone %s open=%t: %w", zoneID, open, err)
	}

	state := "closed"
	if open {
		state = "open"
	}
	details, _ := json.Marshal(map[string]any{"open": open})
	c.audit.Add(model.AuditEntry{
		AdminID:    c.AdminID,
		Action:     fmt.Sprintf("Toggled zone %s to %s", zoneID, state),
		TargetType: "zone",
		TargetID:   zoneID,
		Timestamp:  c.now(),
		Details:    details,
	})
	c.log.Info("zone toggled", zap.String("zone_id", zoneID), zap.Bool("open", open))

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReportNotRefreshed, err)
	}
	return nil
}

// Totals aggregates the report. OccupancyRate is occupied/totalSlots as a
// percentage.
type Totals struct {
	Zones         int     `json:"zones"`
	OpenZones     int     `json:"openZones"`
	TotalSlots    int     `json:"totalSlots"`
	Occupied      int     `json:"occupied"`
	Free          int     `json:"free"`
	Reserved      int     `json:"reserved"`
	Subscribers   int     `json:"subscribers"`
	OccupancyRate float64 `json:"occupancyRate"`
}

// Totals sums the current report rows.
func (c *Console) Totals() Totals {
	return Sum(c.report.List())
}

// Sum aggregates parking-state rows.
func Sum(rows []model.ParkingState) Totals {
	var t Totals
	for _, r := range rows {
		t.Zones++
		if r.Open {
			t.OpenZones++
		}
		t.TotalSlots += r.TotalSlots
		t.Occupied += r.Occupied
		t.Free += r.Free
		t.Reserved += r.Reserved
		t.Subscribers += r.SubscriberCount
	}
	if t.TotalSlots > 0 {
		t.OccupancyRate = float64(t.Occupied) / float64(t.TotalSlots) * 100
	}
	return t
}
