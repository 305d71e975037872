package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"watchtower.dev/internal/console"
)

var (
	serverURL  string
	configPath string

	cfg    console.Config
	client *console.Client
)

var rootCmd = &cobra.Command{
	Use:   "consolectl",
	Short: "Watchtower console client",
	Long: `consolectl signs in to a watchtower API server and browses the views
your role allows: users, profile types, notification rules and IDS alerts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := console.DefaultConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		loaded, err := console.LoadConfig(path)
		if err != nil {
			return err
		}
		if serverURL != "" {
			loaded.Server = serverURL
		}
		cfg = loaded

		storage, err := console.NewFileStorage(cfg.StateFile)
		if err != nil {
			return err
		}
		session, err := console.Open(storage)
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		client, err = console.NewClient(cfg.Server, session)
		return err
	},
}

// Execute runs the root command and maps client errors to friendly output.
func Execute() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		report(err)
		os.Exit(1)
	}
}

func report(err error) {
	var apiErr *console.APIError
	switch {
	case errors.Is(err, console.ErrSignInRequired):
		pterm.Error.Println("Not signed in. Run: consolectl login")
	case errors.Is(err, console.ErrForbidden):
		pterm.Error.Println("Your role cannot open this view.")
	case errors.Is(err, console.ErrInvalidCredentials):
		pterm.Error.Println("Invalid credentials.")
	case errors.As(err, &apiErr):
		if apiErr.RequestID != "" {
			pterm.Error.Printf("%s (request %s)\n", apiErr.Message, apiErr.RequestID)
			return
		}
		pterm.Error.Println(apiErr.Message)
	default:
		pterm.Error.Println(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API server URL (overrides config and WATCHTOWER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.watchtower/config.toml)")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd, configCmd)
	rootCmd.AddCommand(openCmd, menuCmd)
	rootCmd.AddCommand(usersCmd, profileTypesCmd, rulesCmd, alertsCmd, zeekCmd)
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.Timeout())
}
