package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/stats"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List functions registered with the running orchestrator",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	snap, err := readStatsSnapshot()
	if err != nil {
		return err
	}

	if len(snap.Functions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no functions registered (is the orchestrator running?)")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tPORT\tMEMORY\tPID")
	for _, fn := range snap.Functions {
		pid := "-"
		if fn.PID != nil {
			pid = fmt.Sprintf("%d", *fn.PID)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%dMB\t%s\n", fn.ID, fn.State, fn.Port, fn.MemoryMB, pid)
	}
	return w.Flush()
}

func readStatsSnapshot() (stats.Snapshot, error) {
	path := filepath.Join(config.Home(), "stats.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("reading stats file %s (is the orchestrator running?): %w", path, err)
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return stats.Snapshot{}, fmt.Errorf("parsing stats file %s: %w", path, err)
	}
	return snap, nil
}
