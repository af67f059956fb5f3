// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/audio"
	"github.com/xkilldash9x/loopautoma/internal/backend"
	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/llmclient"
	"github.com/xkilldash9x/loopautoma/internal/monitor"
	"github.com/xkilldash9x/loopautoma/internal/observability"
)

type runOptions struct {
	dryRun  bool
	trigger bool
}

func newRunCmd(provider storeProvider) *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run [profile...]",
		Short: "Run automation profiles until they complete, fail or are interrupted",
		Long: `Runs the named profiles side by side, or every configured profile when none
is named. Each run watches its regions, asks the LLM for the next prompt when
they change and types it under the profile's risk threshold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runProfiles(ctx, observability.GetLogger(), cfg, args, opts, provider, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Use the virtual backend, the mock LLM and silent audio")
	runCmd.Flags().BoolVar(&opts.trigger, "trigger", false, "Force one decision at start even if nothing changed")
	return runCmd
}

// selectProfiles resolves ids against the configuration, keeping their order.
// No ids selects every profile.
func selectProfiles(cfg *config.Config, ids []string) ([]config.ProfileConfig, error) {
	if len(ids) == 0 {
		if len(cfg.Profiles()) == 0 {
			return nil, fmt.Errorf("no profiles configured")
		}
		return cfg.Profiles(), nil
	}
	selected := make([]config.ProfileConfig, 0, len(ids))
	for _, id := range ids {
		p, ok := cfg.Profile(id)
		if !ok {
			return nil, fmt.Errorf("profile %q is not configured", id)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func runProfiles(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	ids []string,
	opts runOptions,
	provider storeProvider,
	out io.Writer,
) error {
	profiles, err := selectProfiles(cfg, ids)
	if err != nil {
		return err
	}

	backendCfg, llmCfg, audioCfg := cfg.Backend(), cfg.LLM(), cfg.Audio()
	if opts.dryRun {
		backendCfg.Kind = "virtual"
		llmCfg.Provider = config.ProviderMock
		audioCfg.Backend = "none"
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if cfg.Metrics().Enabled {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := observability.ServeMetrics(metricsCtx, cfg.Metrics().Address, registry, logger); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	set, err := backend.Open(ctx, backendCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", backendCfg.Kind, err)
	}
	defer func() {
		if err := set.Close(); err != nil {
			logger.Warn("Failed to close backend cleanly", zap.Error(err))
		}
	}()

	client, err := llmclient.NewClient(ctx, llmCfg, logger.Named("llm"), metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	notifier, err := audio.New(audioCfg, os.Stderr, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	alarm := audio.NewAlarm(notifier, logger)
	defer alarm.Wait()

	deps := monitor.Deps{
		Capture:           set.Capture,
		Automation:        set.Automation,
		Client:            client,
		Alarm:             alarm,
		Metrics:           metrics,
		Logger:            logger,
		MaxImageDimension: llmCfg.MaxImageDimension,
	}
	if cfg.Database().URL != "" && !opts.dryRun {
		s, cleanup, err := provider.Create(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		deps.Sink = s
	}

	runners := make([]*monitor.Runner, 0, len(profiles))
	for _, pc := range profiles {
		p, err := monitor.BuildProfile(pc, cfg.Monitor(), deps)
		if err != nil {
			return err
		}
		r := monitor.NewRunner(p, deps)
		if opts.trigger {
			r.Trigger()
		}
		runners = append(runners, r)
	}

	outcomes, runErr := monitor.NewSupervisor(cfg.Monitor().MaxConcurrentRuns, logger).RunAll(ctx, runners)
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", o.ProfileID, o.RunID, o.State, o.Reason)
	}
	return runErr
}
