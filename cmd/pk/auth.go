package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

var errNotLoggedIn = errors.New("not logged in (run pk login)")

// requireRole fails unless the stored session belongs to one of roles. With
// no roles any logged-in operator passes.
func requireRole(roles ...model.Role) (model.Profile, error) {
	p, ok := store.Profile()
	if !ok || store.Token() == "" {
		return model.Profile{}, errNotLoggedIn
	}
	if len(roles) == 0 {
		return p, nil
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return model.Profile{}, fmt.Errorf("%s is logged in as %s; this command needs %s", p.Username, p.Role, strings.Join(names, " or "))
}

// readPassword reads a password without echo from a terminal, or one line
// from a pipe.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var loginCmd = &cobra.Command{
	Use:     "login <username>",
	Short:   "Log in and store the session",
	GroupID: "session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		resp, err := api.Login(context.Background(), &model.LoginRequest{
			Username: args[0],
			Password: password,
		})
		if err != nil {
			return err
		}
		if err := store.Save(resp.Token, resp.User); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp.User)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.User.DisplayName(), resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Forget the stored session",
	GroupID: "session",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged-in operator",
	GroupID: "session",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireRole()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", p.DisplayName(), p.Username, p.Role)
		return nil
	},
}
