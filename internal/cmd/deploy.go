package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ankitkpandey1/aetherless/internal/config"
)

var (
	deployGatewayAddr string
	deployForce       bool
)

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy FUNCTION_FILE",
		Short: "Register a new function against a running orchestrator",
		Long: `Validate a single function definition and register it with a running
aetherless instance via its admin endpoint.

Examples:
  aetherless deploy func.yaml
  aetherless deploy func.yaml --gateway http://localhost:8000`,
		Args: cobra.ExactArgs(1),
		RunE: runDeploy,
	}

	flags := cmd.Flags()
	flags.StringVar(&deployGatewayAddr, "gateway", "http://localhost:8000", "Gateway base URL of the running orchestrator")
	flags.BoolVar(&deployForce, "force", false, "Reserved: currently deploy always registers, never replaces")

	return cmd
}

func runDeploy(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading function file %s: %w", path, err)
	}

	// Validate locally first so a bad document fails fast without a round
	// trip to the running orchestrator.
	fn, err := config.ValidateFunctionDocument(content)
	if err != nil {
		return fmt.Errorf("invalid function definition: %w", err)
	}

	resp, err := http.Post(deployGatewayAddr+"/admin/functions", "application/yaml", bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("contacting orchestrator at %s: %w", deployGatewayAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orchestrator rejected deploy (status %s)", resp.Status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deployed function %q\n", fn.ID.String())
	return nil
}
