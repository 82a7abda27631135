package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xlatorbot/pkg/config"
	"xlatorbot/pkg/diag"
	"xlatorbot/pkg/status"

	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the diagnostics of a running bot",
	Long:  "Queries the status endpoint of a running bot and prints its connection state, counters and memory figures.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		addr := strings.TrimSpace(statusAddr)
		if addr == "" {
			cfg, err := config.LoadConfig()
			if err != nil {
				fmt.Printf("failed to load config: %v\n", err)
				return
			}
			addr = status.Address(cfg.Status)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		resp, err := status.Fetch(ctx, addr)
		if err != nil {
			fmt.Printf("status request failed: %v\n", err)
			return
		}

		fmt.Println(renderStatus(resp))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "status server address (defaults to the configured status host and port)")
}

func renderStatus(resp status.Response) string {
	rows := [][]string{
		{"status", resp.Status},
		{"state", string(resp.State)},
		{"uptime", resp.Uptime().Truncate(time.Second).String()},
		{"last logon", diag.FormatTime(resp.LastLogon)},
		{"last state change", diag.FormatTime(resp.LastStateChange)},
		{"translations", strconv.FormatInt(resp.Translations, 10)},
		{"failures", strconv.FormatInt(resp.Failures, 10)},
		{"reconnects", strconv.FormatInt(resp.Reconnects, 10)},
		{"heap alloc", formatBytes(resp.HeapAllocBytes)},
		{"sys", formatBytes(resp.SysBytes)},
		{"goroutines", strconv.Itoa(resp.Goroutines)},
	}

	return renderTable([]string{"FIELD", "VALUE"}, rows)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
