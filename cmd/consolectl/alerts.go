package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"watchtower.dev/internal/alerts"
)

var (
	alertLimit  int
	alertFollow bool
)

func alertRow(a alerts.SuricataAlert) []string {
	return []string{
		a.Timestamp.Local().Format("2006-01-02 15:04:05"),
		a.SeverityLabel(),
		a.Signature,
		a.SrcIP,
		a.DestIP + ":" + strconv.Itoa(a.DestPort),
		a.Protocol,
	}
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent Suricata alerts (Platform Administrator, Security Analyst)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertFollow {
			return followAlerts(cmd)
		}
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		items, err := client.SuricataAlerts(ctx, alertLimit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			pterm.Info.Println("No alerts.")
			return nil
		}
		data := pterm.TableData{{"TIME", "SEVERITY", "SIGNATURE", "SOURCE", "DESTINATION", "PROTO"}}
		for _, a := range items {
			data = append(data, alertRow(a))
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func followAlerts(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pterm.Info.Println("Following alerts, Ctrl+C to stop")
	err := client.FollowAlerts(ctx, func(a alerts.SuricataAlert) {
		row := alertRow(a)
		pterm.Printf("%s  %-8s  %s  %s -> %s %s\n", row[0], row[1], row[2], row[3], row[4], row[5])
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var zeekCmd = &cobra.Command{
	Use:   "zeek",
	Short: "Show recent Zeek connection logs (Platform Administrator, Security Analyst)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		items, err := client.ZeekLogs(ctx, alertLimit)
		if err != nil {
			return err
		}
		data := pterm.TableData{{"TIME", "SOURCE", "DESTINATION", "PROTO", "SERVICE", "EVENT"}}
		for _, z := range items {
			data = append(data, []string{
				z.Timestamp.Local().Format("2006-01-02 15:04:05"),
				z.SrcIP,
				z.DestIP + ":" + strconv.Itoa(z.DestPort),
				z.Proto,
				z.Service,
				z.EventType,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertLimit, "limit", 20, "Number of entries (1-500)")
	alertsCmd.Flags().BoolVarP(&alertFollow, "follow", "f", false, "Stream new alerts as they arrive")
	zeekCmd.Flags().IntVar(&alertLimit, "limit", 20, "Number of entries (1-500)")
}
