package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alfredjeanlab/parkgate/internal/checkout"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/ui"
)

var checkoutCmd = &cobra.Command{
	Use:     "checkout <ticket-id>",
	Short:   "Check a ticket out and print the bill",
	GroupID: "checkpoint",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireRole(model.RoleEmployee, model.RoleAdmin); err != nil {
			return err
		}
		convert, _ := cmd.Flags().GetBool("convert")

		ctx := cmd.Context()
		flow := checkout.New(api, logger.Named("checkout"))
		flow.SetTicketID(args[0])

		result, err := flow.Lookup(ctx)
		if err != nil && flow.State().Phase == checkout.PhaseConversionOffered {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarn(err.Error()))
			if !convert && !confirm(cmd, "Check out as visitor instead?") {
				flow.DismissConversion()
				return errors.New("checkout cancelled")
			}
			result, err = flow.ConvertToVisitor(ctx)
		}
		if err != nil {
			return err
		}

		st := flow.State()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printCheckout(cmd.OutOrStdout(), result, st.Subscription)
		return nil
	},
}

// confirm asks a yes/no question on a terminal. Without a terminal the
// answer is no.
func confirm(cmd *cobra.Command, question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	checkoutCmd.Flags().Bool("convert", false, "check out as visitor if the subscription is rejected")
}
