package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/parkgate/internal/eligibility"
	"github.com/alfredjeanlab/parkgate/internal/gate"
	"github.com/alfredjeanlab/parkgate/internal/kiosk"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/registry"
)

var gatesCmd = &cobra.Command{
	Use:     "gates",
	Short:   "List gates",
	GroupID: "gate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireRole(); err != nil {
			return err
		}
		gates, err := api.ListGates(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gates)
		}
		printGatesTable(cmd.OutOrStdout(), gates)
		return nil
	},
}

var zonesCmd = &cobra.Command{
	Use:     "zones <gate-id>",
	Short:   "List a gate's zones, optionally only those a user may enter",
	GroupID: "gate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireRole(); err != nil {
			return err
		}
		userType, _ := cmd.Flags().GetString("type")
		subID, _ := cmd.Flags().GetString("subscription")

		ctx := cmd.Context()
		zones, err := api.ListZones(ctx, args[0])
		if err != nil {
			return err
		}

		if userType != "" || subID != "" {
			q := eligibility.Query{UserType: model.UserType(userType)}
			if subID != "" {
				q.UserType = model.UserSubscriber
				sub, err := api.GetSubscription(ctx, subID)
				if err != nil {
					return err
				}
				if !sub.Active {
					return gate.ErrSubscriptionInactive
				}
				q.Verified, q.Subscription = true, sub
			}
			if !q.UserType.IsValid() {
				return gate.ErrUnknownUserType
			}
			zones = eligibility.Filter(zones, q)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), zones)
		}
		printZonesTable(cmd.OutOrStdout(), zones)
		return nil
	},
}

var gateCmd = &cobra.Command{
	Use:     "gate <gate-id>",
	Short:   "Run the interactive check-in terminal for a gate",
	GroupID: "gate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireRole(model.RoleEmployee, model.RoleAdmin)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()

		zones := registry.New[model.Zone]()
		audit := registry.NewAuditLog(registry.DefaultAuditCapacity)
		ch := newPushChannel(zones, audit)
		defer ch.Disconnect()

		log := logger.Named("gate")
		log.Info("terminal starting")
		s := gate.New(api, ch, zones, log)

		m := kiosk.NewModel(ctx, s, args[0], zones, ch)
		defer m.Close()

		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("running terminal: %w", err)
		}
		s.Leave()
		fmt.Fprintf(cmd.OutOrStdout(), "Gate %s closed by %s\n", args[0], p.DisplayName())
		return nil
	},
}

func init() {
	zonesCmd.Flags().String("type", "", "only zones open to this user type (visitor or subscriber)")
	zonesCmd.Flags().String("subscription", "", "only zones this subscription may enter")
}
