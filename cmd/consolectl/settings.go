package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"watchtower.dev/internal/settings"
)

var profileTypesCmd = &cobra.Command{
	Use:     "profile-types",
	Aliases: []string{"pt"},
	Short:   "List or create profile types (Platform Administrator)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		items, err := client.ProfileTypes(ctx)
		if err != nil {
			return err
		}
		data := pterm.TableData{{"ID", "NAME", "STATUS", "CREATED"}}
		for _, pt := range items {
			data = append(data, []string{pt.ID, pt.Name, string(pt.Status), pt.CreatedAt.Local().Format("2006-01-02")})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var profileTypesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		pt, err := client.CreateProfileType(ctx, args[0], status)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Created profile type %s (%s)\n", pt.Name, pt.ID)
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage notification rules (Platform or Network Administrator)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		rules, err := client.NotificationRules(ctx)
		if err != nil {
			return err
		}
		data := pterm.TableData{{"ID", "NAME", "SEVERITY", "CATEGORY", "THRESHOLD", "CHANNELS", "ENABLED"}}
		for _, r := range rules {
			channels := make([]string, len(r.Channels))
			for i, ch := range r.Channels {
				channels[i] = string(ch)
			}
			data = append(data, []string{
				r.ID, r.Name, r.Severity, r.Category, strconv.Itoa(r.Threshold),
				strings.Join(channels, ","), strconv.FormatBool(r.Enabled),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var newRule settings.NewRule

var rulesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a notification rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		disabled, _ := cmd.Flags().GetBool("disabled")
		enabled := !disabled
		newRule.Enabled = &enabled

		ctx, cancel := withTimeout(cmd)
		defer cancel()
		rule, err := client.CreateNotificationRule(ctx, newRule)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Created rule %s (%s)\n", rule.Name, rule.ID)
		return nil
	},
}

func toggleRule(enabled bool) *cobra.Command {
	use, verb := "enable <id>", "Enabled"
	if !enabled {
		use, verb = "disable <id>", "Disabled"
	}
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s a notification rule", strings.TrimSuffix(verb, "d")),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			rule, err := client.SetNotificationRuleEnabled(ctx, args[0], enabled)
			if err != nil {
				return err
			}
			pterm.Success.Printf("%s %s\n", verb, rule.Name)
			return nil
		},
	}
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a notification rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		if err := client.DeleteNotificationRule(ctx, args[0]); err != nil {
			return err
		}
		pterm.Success.Printf("Deleted rule %s\n", args[0])
		return nil
	},
}

func init() {
	profileTypesCreateCmd.Flags().String("status", "Active", "Active or Inactive")
	profileTypesCmd.AddCommand(profileTypesCreateCmd)

	f := rulesCreateCmd.Flags()
	f.StringVar(&newRule.Name, "name", "", "Rule name")
	f.StringVar(&newRule.Severity, "severity", "", "Minimum severity")
	f.StringVar(&newRule.Category, "category", "", "Alert category")
	f.IntVar(&newRule.Threshold, "threshold", 1, "Events before notifying")
	f.StringSliceVar(&newRule.Channels, "channel", nil, "Delivery channel (Email, SMS, Slack, Webhook); repeatable")
	f.Bool("disabled", false, "Create the rule disabled")

	rulesCmd.AddCommand(rulesCreateCmd, toggleRule(true), toggleRule(false), rulesDeleteCmd)
}
