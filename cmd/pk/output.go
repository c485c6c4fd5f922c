package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/alfredjeanlab/parkgate/internal/admin"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printGatesTable(w io.Writer, gates []model.Gate) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, g := range gates {
		fmt.Fprintf(tw, "%s\t%s\n", g.ID, g.Name)
	}
	tw.Flush()
}

func printZonesTable(w io.Writer, zones []model.Zone) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tVISITORS\tSUBSCRIBERS\tRATE\tSTATE")
	for _, z := range zones {
		state := "open"
		if !z.Open {
			state = "closed"
		}
		rate := fmt.Sprintf("%.2f", z.ActiveRate())
		if z.SpecialActive {
			rate += " (special)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d/%d\t%s\t%s\n",
			z.ID, z.Name, z.CategoryID,
			z.AvailableForVisitors, z.TotalSlots,
			z.AvailableForSubscribers, z.TotalSlots,
			rate, state)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d zones\n", len(zones))
}

func printCheckout(w io.Writer, r *model.CheckoutResult, sub *model.Subscription) {
	fmt.Fprintf(w, "Ticket:      %s\n", r.TicketID)
	if sub != nil {
		fmt.Fprintf(w, "Subscriber:  %s (%s)\n", sub.UserName, sub.ID)
		for _, car := range sub.Cars {
			fmt.Fprintf(w, "  Car:       %s %s %s %s\n", car.Plate, car.Brand, car.Model, car.Color)
		}
	}
	fmt.Fprintf(w, "Checked in:  %s\n", r.CheckinAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Checked out: %s\n", r.CheckoutAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Duration:    %.2f h\n", r.DurationHours)

	if len(r.Breakdown) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FROM\tTO\tHOURS\tMODE\tRATE\tAMOUNT")
		for _, s := range r.Breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%.2f\t%.2f\n",
				s.From.Local().Format("15:04"), s.To.Local().Format("15:04"),
				s.Hours, s.RateMode, s.Rate, s.Amount)
		}
		tw.Flush()
	}
	fmt.Fprintf(w, "\nTotal:       %s\n", ui.RenderBold(fmt.Sprintf("%.2f", r.Amount)))
}

func printParkingState(w io.Writer, rows []model.ParkingState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ZONE\tNAME\tCATEGORY\tOCCUPIED\tFREE\tRESERVED\tVISITORS\tSUBSCRIBERS\tSTATE")
	for _, r := range rows {
		state := ui.RenderOK("open")
		if !r.Open {
			state = ui.RenderMuted("closed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.Name, r.CategoryID, r.Occupied, r.TotalSlots, r.Free, r.Reserved,
			r.AvailableForVisitors, r.AvailableForSubscribers, state)
	}
	tw.Flush()

	t := admin.Sum(rows)
	fmt.Fprintf(w, "\n%d zones (%d open), %d/%d occupied (%.1f%%), %d reserved, %d subscribers\n",
		t.Zones, t.OpenZones, t.Occupied, t.TotalSlots, t.OccupancyRate, t.Reserved, t.Subscribers)
}

func printAuditEntry(w io.Writer, e model.AuditEntry) {
	who := e.AdminID
	if who == "" {
		who = "-"
	}
	fmt.Fprintf(w, "%s  %-10s %s %s\n",
		ui.RenderMuted(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
		who, e.Action, ui.RenderMuted(string(e.Details)))
}

func printAuditLog(w io.Writer, entries []model.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No audit entries"))
		return
	}
	for _, e := range entries {
		printAuditEntry(w, e)
	}
}
