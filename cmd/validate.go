// File: cmd/validate.go
package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/backend/virtual"
	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/llmclient"
	"github.com/xkilldash9x/loopautoma/internal/monitor"
	"github.com/xkilldash9x/loopautoma/internal/observability"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and build every profile without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runValidate(observability.GetLogger(), cfg, cmd.OutOrStdout())
		},
	}
}

// runValidate builds each profile against inert collaborators so action
// wiring errors surface before a real run. Region ids referenced by LLM
// actions are only resolved at execution time, so unknown ones are reported
// as warnings here.
func runValidate(logger *zap.Logger, cfg *config.Config, out io.Writer) error {
	deps := monitor.Deps{
		Capture:    virtual.NewScreen(1, 1),
		Automation: virtual.NewRecorder(),
		Client:     llmclient.NewRetryingClient(llmclient.NewMockTransport(), llmclient.DefaultOptions(), logger, nil),
		Logger:     logger,
	}

	warnings := 0
	for i, pc := range cfg.Profiles() {
		if _, err := monitor.BuildProfile(pc, cfg.Monitor(), deps); err != nil {
			return fmt.Errorf("profiles[%d]: %w", i, err)
		}
		for _, w := range regionWarnings(pc) {
			fmt.Fprintf(out, "warning: profile %q: %s\n", pc.ID, w)
			warnings++
		}
	}

	fmt.Fprintf(out, "configuration OK: %d profile(s), %d warning(s)\n", len(cfg.Profiles()), warnings)
	return nil
}

func regionWarnings(pc config.ProfileConfig) []string {
	ids := make([]string, 0, len(pc.Regions))
	for _, r := range pc.Regions {
		ids = append(ids, r.ID)
	}

	var warnings []string
	for i, a := range pc.Actions {
		if a.Type != config.ActionLLMPromptGeneration {
			continue
		}
		if len(a.RegionIDs) == 0 {
			warnings = append(warnings, fmt.Sprintf("actions[%d] sends no regions to the LLM", i))
		}
		for _, id := range a.RegionIDs {
			if !slices.Contains(ids, id) {
				warnings = append(warnings, fmt.Sprintf("actions[%d] references unknown region %q", i, id))
			}
		}
	}
	return warnings
}
