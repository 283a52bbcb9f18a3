package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/dashboard"
)

var (
	statsWatchFlag     bool
	statsDashboardFlag bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a point-in-time snapshot of orchestrator state",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	flags := cmd.Flags()
	flags.BoolVar(&statsWatchFlag, "watch", false, "Refresh the snapshot every second until interrupted")
	flags.BoolVar(&statsDashboardFlag, "dashboard", false, "Open a live terminal dashboard instead of printing JSON")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsDashboardFlag {
		model := dashboard.New(readStatsSnapshot)
		p := tea.NewProgram(model)
		_, err := p.Run()
		return err
	}

	if !statsWatchFlag {
		return printStatsOnce(cmd)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if err := printStatsOnce(cmd); err != nil {
			return err
		}
		<-ticker.C
	}
}

func printStatsOnce(cmd *cobra.Command) error {
	snap, err := readStatsSnapshot()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
