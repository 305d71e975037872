package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"watchtower.dev/internal/console"
	"watchtower.dev/internal/policy"
)

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Resolve a console path for the current role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nav := console.NewGuard(client.Session()).Navigate(args[0])
		switch nav.Outcome {
		case console.Render:
			pterm.Success.Printf("%s (%s)\n", nav.View.Title, nav.Path)
			for _, endpoint := range nav.View.API {
				pterm.Info.Printf("reads %s\n", endpoint)
			}
		case console.RedirectSignIn:
			pterm.Warning.Printf("Sign in required, redirecting to %s (from %s)\n", nav.Path, nav.From)
		case console.RedirectForbidden:
			pterm.Warning.Printf("Access denied, redirecting to %s\n", nav.Path)
		}
		return nil
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "List the navigation entries visible to the current role",
	RunE: func(cmd *cobra.Command, args []string) error {
		role := client.Session().Current().Role()
		entries := console.VisibleEntries(policy.Menu(), role)
		if len(entries) == 0 {
			pterm.Info.Println("No entries. Sign in to see the menu.")
			return nil
		}
		data := pterm.TableData{{"NAME", "PATH"}}
		for _, e := range entries {
			data = append(data, []string{e.Name, e.Path})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}
