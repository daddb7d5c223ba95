package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"blocknet/pkg/types"
	"blocknet/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD")).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6272A4")).
			Padding(1, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4")).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2")).
			Bold(true)

	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	unhealthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD")).Padding(0, 1)
	rowStyle       = lipgloss.NewStyle().Padding(0, 1)
)

func statusCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show utilization of a running network",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}

			var stats types.StatsSnapshot
			if err := fetchJSON(client, address+"/api/stats", &stats); err != nil {
				return fmt.Errorf("failed to query %s: %w", address, err)
			}

			fmt.Println(renderStats(stats))
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "http://127.0.0.1:8000", "base URL of the running service")
	return cmd
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func renderStats(stats types.StatsSnapshot) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("blocknet network status"))
	b.WriteString("\n")

	utilization := 0.0
	if stats.TotalCapacity > 0 {
		utilization = float64(stats.TotalUsed) / float64(stats.TotalCapacity) * 100
	}

	summary := strings.Join([]string{
		labelStyle.Render("Nodes") + valueStyle.Render(fmt.Sprintf("%d", stats.NodeCount)),
		labelStyle.Render("Files") + valueStyle.Render(fmt.Sprintf("%d", stats.FileCount)),
		labelStyle.Render("Capacity") + valueStyle.Render(utils.FormatDataSize(stats.TotalCapacity)),
		labelStyle.Render("Used") + valueStyle.Render(utils.FormatDataSize(stats.TotalUsed)),
		labelStyle.Render("Utilization") + renderBar(utilization, 24),
	}, "\n")
	b.WriteString(panelStyle.Render(summary))
	b.WriteString("\n")

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return rowStyle
		}).
		Headers("NODE", "STATE", "USED", "TOTAL", "BLOCKS")

	for _, n := range stats.Nodes {
		state := healthyStyle.Render("healthy")
		if !n.Healthy {
			state = unhealthyStyle.Render("unhealthy")
		}
		tbl.Row(
			string(n.ID),
			state,
			utils.FormatDataSize(n.UsedCapacity),
			utils.FormatDataSize(n.TotalCapacity),
			fmt.Sprintf("%d", n.BlockCount),
		)
	}
	b.WriteString(tbl.Render())

	return b.String()
}

func renderBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(width) * percent / 100)
	bar := healthyStyle.Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(lipgloss.Color("#44475A")).Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s %.1f%%", bar, percent)
}
