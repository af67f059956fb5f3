// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/monitor"
	"github.com/xkilldash9x/loopautoma/internal/observability"
	"github.com/xkilldash9x/loopautoma/internal/store"
)

// runStore is the part of store.Store the commands use.
type runStore interface {
	monitor.Sink
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// storeProvider creates the audit store. Tests inject a fake instead of a
// live database.
type storeProvider interface {
	// Create returns the store and a cleanup function releasing its resources.
	Create(ctx context.Context, cfg config.Interface) (runStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL-backed provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to PostgreSQL and makes sure the schema exists.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (runStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (LOOPAUTOMA_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed")
	}
	return s, cleanup, nil
}

func newHistoryCmd(provider storeProvider) *cobra.Command {
	var (
		limit     int
		profileID string
		asJSON    bool
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs from the audit store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, observability.GetLogger(), cfg, provider, cmd.OutOrStdout(), limit, profileID, asJSON)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVarP(&profileID, "profile", "p", "", "Only show runs of this profile")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return historyCmd
}

func runHistory(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	provider storeProvider,
	out io.Writer,
	limit int,
	profileID string,
	asJSON bool,
) error {
	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if profileID != "" {
		filtered := runs[:0]
		for _, r := range runs {
			if r.ProfileID == profileID {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}
	logger.Debug("Listing runs", zap.Int("runs", len(runs)))

	if asJSON {
		encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize runs to JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(encoded))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tPROFILE\tSTATE\tSTARTED\tDURATION\tDECISIONS\tREASON")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.ProfileID, r.State,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Millisecond),
			r.Decisions, r.Reason)
	}
	return w.Flush()
}
