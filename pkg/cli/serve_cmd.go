package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joocer/s1/internal/app"
	"github.com/joocer/s1/internal/config"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the S3 gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			slog.SetDefault(logger)
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}
			logger.Info("starting s1",
				"version", version,
				"backend", cfg.Storage.Backend,
				"cache_size", cfg.Storage.CacheSize,
				"framing", cfg.SelectFraming,
			)

			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides LISTEN_ADDR")
	return cmd
}

// newToolApp wires the application for one-shot commands. Logging stays at
// warn unless debug was asked for, so stdout carries only results.
func newToolApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.SlogLevel() > slog.LevelDebug {
		cfg.LogLevel = "warn"
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
}
