package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/parkgate/internal/client"
	"github.com/alfredjeanlab/parkgate/internal/config"
	"github.com/alfredjeanlab/parkgate/internal/idgen"
	"github.com/alfredjeanlab/parkgate/internal/logging"
	"github.com/alfredjeanlab/parkgate/internal/session"
	"github.com/alfredjeanlab/parkgate/internal/ui"
)

var (
	configPath string
	jsonOutput bool
	noColor    bool

	cfg      *config.Config
	logger   *zap.Logger
	flushLog func()
	store    *session.Store
	api      *client.HTTPClient
)

// tuiCommands log to a file under the state dir so output does not tear the
// terminal UI.
var tuiCommands = map[string]bool{"gate": true}

var rootCmd = &cobra.Command{
	Use:           "pk <command>",
	Short:         "Parking gate terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		ui.SetColorMode(colorMode())

		stateDir := cfg.StateDir
		if stateDir == "" {
			if stateDir, err = session.DefaultDir(); err != nil {
				return err
			}
		}

		logFile := cfg.LogFile
		if logFile == "" && tuiCommands[cmd.Name()] {
			logFile = filepath.Join(stateDir, "pk.log")
		}
		logger, flushLog, err = logging.New(logging.Options{
			Level:      cfg.LogLevel,
			File:       logFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		})
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		logger = logger.With(zap.String("run_id", idgen.SessionID()), zap.String("command", cmd.CommandPath()))

		store = session.NewStore(stateDir, logger.Named("session"))
		if err := store.Load(); err != nil {
			// The invalid file has already been removed; carry on logged out.
			fmt.Fprintf(cmd.ErrOrStderr(), "Stored session discarded: %v\n", err)
		}

		api = client.NewHTTPClient(cfg.APIURL, store, client.WithTimeout(cfg.RequestTimeout))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if api != nil {
			api.Close()
		}
		if flushLog != nil {
			flushLog()
		}
	},
}

// colorMode combines --no-color with the configured mode. Help runs before
// the config is loaded and falls back to auto.
func colorMode() ui.ColorMode {
	if noColor {
		return ui.ColorNever
	}
	if cfg == nil {
		return ui.ColorAuto
	}
	return ui.ColorMode(cfg.Color)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/parkgate/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "gate", Title: "Gate:"},
		&cobra.Group{ID: "checkpoint", Title: "Checkpoint:"},
		&cobra.Group{ID: "admin", Title: "Admin:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Session
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	// Gate
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(gateCmd)

	// Checkpoint
	rootCmd.AddCommand(checkoutCmd)

	// Admin
	rootCmd.AddCommand(adminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
