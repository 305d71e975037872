package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"watchtower.dev/internal/console"
)

var (
	loginEmail    string
	loginPassword string
	loginRole     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Signs in with email and password. When --role is given the server also
checks that the account holds that role. The password is read from
WATCHTOWER_PASSWORD or prompted for when --password is omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" {
			return fmt.Errorf("--email is required")
		}
		password := loginPassword
		if password == "" {
			password = os.Getenv("WATCHTOWER_PASSWORD")
		}
		if password == "" {
			p, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
			if err != nil {
				return err
			}
			password = p
		}

		ctx, cancel := withTimeout(cmd)
		defer cancel()
		user, err := client.Login(ctx, loginEmail, password, loginRole)
		if err != nil {
			return err
		}

		pterm.Success.Printf("Signed in as %s (%s)\n", user.Email, user.Role)
		nav := console.NewGuard(client.Session()).Navigate("/")
		pterm.Info.Printf("Home: %s\n", nav.Path)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Logout(); err != nil {
			return err
		}
		pterm.Success.Println("Signed out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DefaultSection.Println("Session")
		pterm.Info.Printf("Server: %s\n", cfg.Server)
		if !client.Session().IsAuthenticated() {
			pterm.Warning.Println("Not signed in")
			return nil
		}

		ctx, cancel := withTimeout(cmd)
		defer cancel()
		me, err := client.Me(ctx)
		if err != nil {
			return err
		}
		pterm.Info.Printf("User: %s <%s>\n", me.Name, me.Email)
		pterm.Info.Printf("Role: %s\n", me.Role)
		if !me.ExpiresAt.IsZero() {
			pterm.Info.Printf("Access token expires: %s\n", me.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or save the client configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.Printf("server = %q\nstate_file = %q\ntimeout = %s\n", cfg.Server, cfg.StateFile, cfg.Timeout())
		save, _ := cmd.Flags().GetBool("save")
		if !save {
			return nil
		}
		path := configPath
		if path == "" {
			p, err := console.DefaultConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if err := console.SaveConfig(path, cfg); err != nil {
			return err
		}
		pterm.Success.Printf("Saved %s\n", path)
		return nil
	},
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	loginCmd.Flags().StringVar(&loginRole, "role", "", "Expected role (optional)")
	configCmd.Flags().Bool("save", false, "Write the effective configuration to the config file")
}
