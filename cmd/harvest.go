// Package cmd defines and implements the CLI commands for the schemeharvest
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/janseva-labs/schemeharvest/internal/clock/system"
	"github.com/janseva-labs/schemeharvest/internal/harvest"
	"github.com/janseva-labs/schemeharvest/internal/id/uuid"
	"github.com/janseva-labs/schemeharvest/internal/logging"
	"github.com/janseva-labs/schemeharvest/internal/sink"
)

// newHarvestCmd creates the 'harvest' subcommand, which runs one full
// collection cycle and commits the results.
func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Runs one harvest cycle",
		Long: `Fetches every configured seed source, extracts and normalizes scheme
records, deduplicates them, and commits the results to the snapshot, the run
log, and the configured database.`,

		RunE: runHarvestCommand,
	}
	return cmd
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	cfg, err := harvest.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load harvest config: %w", err)
	}
	data, err := harvest.LoadDataset(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("load harvest data: %w", err)
	}

	engine, cleanup, err := buildEngine(cfg, data, logger)
	if err != nil {
		return err
	}
	defer cleanup(cmd.Context())

	result, err := engine.Run(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run harvest: %w", err)
	}

	out, err := sink.New(
		cfg.OutputDir,
		appInstance.GetDatabase(),
		appInstance.GetStorage(),
		appInstance.GetPublisher(),
		logger,
	)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}
	if err := out.Commit(cmd.Context(), result); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	logging.L.Info("Harvest command finished.",
		zap.String("run_id", result.RunID),
		zap.Int("unique_records", result.Stats.UniqueRecords))
	return nil
}

func buildEngine(
	cfg harvest.Config,
	data harvest.Dataset,
	logger *zap.Logger,
) (*harvest.Engine, func(context.Context), error) {
	fetcher, err := harvest.NewCollyFetcher(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init fetcher: %w", err)
	}

	renderer, err := buildRenderer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	client := harvest.NewClient(
		fetcher,
		renderer,
		harvest.NewExponentialRetryPolicy(cfg.MaxRetries, cfg.RetryBaseDelay),
		harvest.NewRobotsEnforcer(cfg.RespectRobots, cfg.UserAgent, logger),
		harvest.NewTTLPageCache(cfg.PageCacheTTL),
		logger,
	)

	engine := harvest.NewEngine(
		cfg,
		data,
		client,
		harvest.NewChain(data, logger),
		harvest.NewNormalizer(data),
		harvest.NewRegionResolver(data),
		harvest.NewDeduplicator(),
		system.New(),
		uuid.New(),
		logger,
	)

	cleanup := func(ctx context.Context) {
		if renderer == nil {
			return
		}
		if cerr := renderer.Close(ctx); cerr != nil {
			logger.Warn("Failed to close renderer", zap.Error(cerr))
		}
	}
	return engine, cleanup, nil
}

func buildRenderer(cfg harvest.Config, logger *zap.Logger) (harvest.Renderer, error) {
	if !cfg.FeatureRenderEnabled || cfg.RenderMaxConcurrency <= 0 {
		return nil, nil
	}
	renderer, err := harvest.NewChromedpRenderer(cfg, logger)
	switch {
	case err == nil:
		return renderer, nil
	case errors.Is(err, harvest.ErrRendererDisabled):
		logger.Warn("Renderer disabled despite feature flag; rendered seeds will use static fetches")
		return nil, nil
	default:
		return nil, fmt.Errorf("init renderer: %w", err)
	}
}
