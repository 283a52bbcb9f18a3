package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate CONFIG",
		Short: "Validate an orchestrator configuration file without starting it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d function(s), warm_pool_size=%d\n",
		path, len(cfg.Functions), cfg.Orchestrator.WarmPoolSize)
	for _, fn := range cfg.Functions {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s (port %d, %s, timeout %dms)\n",
			fn.ID.String(), fn.TriggerPort.Value(), fn.MemoryLimit.String(), fn.TimeoutMs)
	}

	return nil
}
