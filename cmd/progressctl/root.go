package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"hanzikit/config"
	"hanzikit/engine"
	"hanzikit/gamify"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Inspect and update learner achievements",
		Long:          "progressctl applies statistic updates and renders achievement screens against the configured progress store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to a JSON or YAML config file (defaults to profile and environment)")
	root.PersistentFlags().String("adapter", "", "Override storage adapter: memory, file, redis, sql")
	root.PersistentFlags().String("data-dir", "", "Override the file store directory")
	root.PersistentFlags().Bool("verbose", false, "Log engine activity to stderr")

	root.AddCommand(
		newUpdateCmd(),
		newCheckCmd(),
		newShowCmd(),
		newLeaderboardCmd(),
		newCatalogCmd(),
		newMigrateCmd(),
		newProfilesCmd(),
	)
	return root
}

// loadConfig resolves configuration from --config (highest priority), then
// the profile and environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if a, _ := cmd.Flags().GetString("adapter"); a != "" {
		cfg.Storage.Adapter = a
	}
	if d, _ := cmd.Flags().GetString("data-dir"); d != "" {
		cfg.Storage.File.Dir = d
	}
	return cfg, cfg.Storage.Validate()
}

// openEngine builds a synchronous engine over the configured store. The
// returned func closes both.
func openEngine(cmd *cobra.Command) (*engine.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := gamify.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	eng := gamify.New(
		gamify.WithStore(store),
		gamify.WithDispatchMode(engine.DispatchSync),
		gamify.WithLogger(logger),
	)
	return eng, func() {
		eng.Close()
		_ = closeStore()
	}, nil
}
