package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"watchtower.dev/internal/console"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts (Platform Administrator)",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		accounts, err := client.Users(ctx)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			pterm.Info.Println("No accounts.")
			return nil
		}
		data := pterm.TableData{{"ID", "NAME", "EMAIL", "ROLE", "STATUS", "JOINED", "LAST ACTIVE"}}
		for _, a := range accounts {
			last := "-"
			if a.LastActiveAt != nil {
				last = a.LastActiveAt.Local().Format("2006-01-02 15:04")
			}
			data = append(data, []string{
				a.ID, a.Name, a.Email, string(a.Role), string(a.Status),
				a.CreatedAt.Local().Format("2006-01-02"), last,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var newUser console.NewUser

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		acc, err := client.CreateUser(ctx, newUser)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Created %s (%s) as %s\n", acc.Email, acc.ID, acc.Role)
		return nil
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an account's name, email, role, status or password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd console.UserUpdate
		for flag, dst := range map[string]**string{
			"name":     &upd.Name,
			"email":    &upd.Email,
			"role":     &upd.Role,
			"status":   &upd.Status,
			"password": &upd.Password,
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*dst = &v
			}
		}
		if upd == (console.UserUpdate{}) {
			return fmt.Errorf("nothing to update")
		}

		ctx, cancel := withTimeout(cmd)
		defer cancel()
		acc, err := client.UpdateUser(ctx, args[0], upd)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Updated %s: %s, %s\n", acc.Email, acc.Role, acc.Status)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(fmt.Sprintf("Delete account %s?", args[0])) {
			pterm.Info.Println("Aborted")
			return nil
		}
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		if err := client.DeleteUser(ctx, args[0]); err != nil {
			return err
		}
		pterm.Success.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd, usersCreateCmd, usersUpdateCmd, usersDeleteCmd)

	f := usersCreateCmd.Flags()
	f.StringVar(&newUser.Name, "name", "", "Display name")
	f.StringVar(&newUser.Email, "email", "", "Email address")
	f.StringVar(&newUser.Password, "password", "", "Initial password")
	f.StringVar(&newUser.Role, "role", "", "Role")
	f.StringVar(&newUser.Status, "status", "", "Status (default Active)")

	u := usersUpdateCmd.Flags()
	u.String("name", "", "New display name")
	u.String("email", "", "New email address")
	u.String("role", "", "New role")
	u.String("status", "", "New status")
	u.String("password", "", "New password")

	usersDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
}
