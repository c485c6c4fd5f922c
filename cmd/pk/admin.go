package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/parkgate/internal/admin"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/push"
	"github.com/alfredjeanlab/parkgate/internal/registry"
	"github.com/alfredjeanlab/parkgate/internal/ui"
)

var adminCmd = &cobra.Command{
	Use:     "admin",
	Short:   "Parking-state report, zone control and audit log",
	GroupID: "admin",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		_, err := requireRole(model.RoleAdmin)
		return err
	},
}

// newConsole builds a console whose audit entries are attributed to the
// logged-in admin.
func newConsole(audit *registry.AuditLog) *admin.Console {
	c := admin.New(api, audit, logger.Named("admin"))
	if p, ok := store.Profile(); ok {
		c.AdminID = p.ID
	}
	return c
}

var adminStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show occupancy for every zone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newConsole(registry.NewAuditLog(0))
		if err := c.Refresh(cmd.Context()); err != nil {
			return err
		}
		rows := c.Report().List()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"zones":  rows,
				"totals": c.Totals(),
			})
		}
		printParkingState(cmd.OutOrStdout(), rows)
		return nil
	},
}

var adminToggleCmd = &cobra.Command{
	Use:   "toggle <zone-id>",
	Short: "Open a closed zone or close an open one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		audit := registry.NewAuditLog(0)
		c := newConsole(audit)
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		// A failed refresh still leaves a recorded toggle to show.
		err := c.ToggleZone(ctx, args[0])
		if err != nil && !errors.Is(err, admin.ErrReportNotRefreshed) {
			return err
		}

		if jsonOutput {
			if perr := printJSON(cmd.OutOrStdout(), audit.Entries()[0]); perr != nil {
				return perr
			}
			return err
		}
		printAuditEntry(cmd.OutOrStdout(), audit.Entries()[0])
		return err
	},
}

// teeAudit records entries in the log and forwards them for printing.
type teeAudit struct {
	log *registry.AuditLog
	out chan<- model.AuditEntry
}

func (t teeAudit) Add(e model.AuditEntry) {
	t.log.Add(e)
	select {
	case t.out <- e:
	default:
	}
}

// teeZones records zone updates and forwards them for printing.
type teeZones struct {
	zones *registry.Registry[model.Zone]
	out   chan<- model.Zone
}

func (t teeZones) Upsert(z model.Zone) {
	t.zones.Upsert(z)
	select {
	case t.out <- z:
	default:
	}
}

var adminWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream admin actions and zone updates until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gateID, _ := cmd.Flags().GetString("gate")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		entries := make(chan model.AuditEntry, 64)
		updates := make(chan model.Zone, 64)
		audit := registry.NewAuditLog(0)
		zones := registry.New[model.Zone]()

		ch := newPushChannel(teeZones{zones: zones, out: updates}, teeAudit{log: audit, out: entries})
		defer ch.Disconnect()
		status, cancel := ch.WatchStatus()
		defer cancel()

		ch.Connect()
		if gateID != "" {
			ch.Subscribe(gateID)
		}

		w := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case s := <-status:
				fmt.Fprintf(w, "%s push %s\n", ui.RenderMuted("--"), ui.RenderConnection(s == push.StatusConnected))
			case e := <-entries:
				if jsonOutput {
					_ = printJSON(w, e)
				} else {
					printAuditEntry(w, e)
				}
			case z := <-updates:
				if jsonOutput {
					_ = printJSON(w, z)
				} else {
					fmt.Fprintf(w, "%s zone %s visitors %s subscribers %s\n",
						ui.RenderMuted("~~"), z.ID,
						ui.RenderAvailability(z.AvailableForVisitors, z.TotalSlots, z.Open),
						ui.RenderAvailability(z.AvailableForSubscribers, z.TotalSlots, z.Open))
				}
			}
		}
	},
}

func init() {
	adminWatchCmd.Flags().String("gate", "", "also follow zone updates for this gate")

	adminCmd.AddCommand(adminStateCmd)
	adminCmd.AddCommand(adminToggleCmd)
	adminCmd.AddCommand(adminWatchCmd)
}
