//go:build linux

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/config"
)

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop a running orchestrator started with 'up'",
		Args:  cobra.NoArgs,
		RunE:  runDown,
	}
}

func runDown(cmd *cobra.Command, args []string) error {
	pidPath := filepath.Join(config.Home(), "aetherless.pid")
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("no running orchestrator found (%s): %w", pidPath, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("malformed pid file %s: %w", pidPath, err)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to pid %d: %w", pid, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent shutdown signal to aetherless (pid %d)\n", pid)
	return nil
}
