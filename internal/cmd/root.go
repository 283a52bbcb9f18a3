// Package cmd implements the aetherless command-line interface, built on
// cobra the way the teacher repo builds its own root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configDirFlag string
	verboseFlag   bool
	jsonFlag      bool
)

// NewRootCmd assembles the full aetherless command tree.
func NewRootCmd() *cobra.Command {
	root := newRootCmd()
	root.AddCommand(newUpCmd())
	root.AddCommand(newDownCmd())
	root.AddCommand(newDeployCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newValidateCmd())
	return root
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aetherless",
		Short:         "Single-node serverless function orchestrator",
		Long:          "aetherless — a single-node serverless function orchestrator that minimizes cold-start latency via process checkpoint/restore.",
		Version:       fmt.Sprintf("aetherless v%s", Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetConfigDir(configDirFlag)
			level := logrus.InfoLevel
			if verboseFlag {
				level = logrus.DebugLevel
			}
			logrus.SetLevel(level)
			if jsonFlag {
				logrus.SetFormatter(&logrus.JSONFormatter{})
			}
			return nil
		},
	}

	root.SetVersionTemplate("{{.Version}}\n")

	pflags := root.PersistentFlags()
	pflags.StringVar(&configDirFlag, "config-dir", "", "Override orchestrator home directory (default: ~/.aetherless)")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	pflags.BoolVarP(&jsonFlag, "json", "j", false, "Emit structured JSON logs")

	if v := os.Getenv("AETHERLESS_HOME"); v != "" && configDirFlag == "" {
		configDirFlag = v
	}

	return root
}

// Execute runs the root command and returns its error, if any.
func Execute() error {
	return NewRootCmd().Execute()
}
