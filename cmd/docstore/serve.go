package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/docstore/internal/app"
	"github.com/dropDatabas3/docstore/internal/config"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env es opcional
			_ = godotenv.Load()

			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: cfg.App.Name,
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logger.ToContext(ctx, logger.L())

			a, err := app.New(ctx, cfg, app.BuildInfo{Version: version, Commit: commit}, app.Options{})
			if err != nil {
				logger.L().Error("startup failed", logger.Err(err))
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.L().Warn("close failed", logger.Err(err))
				}
			}()

			if err := a.Run(ctx); err != nil {
				logger.L().Error("server failed", logger.Err(err))
				return err
			}
			logger.L().Info("bye")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", envOr("CONFIG_PATH", "configs/config.yaml"), "Archivo YAML de configuración (env CONFIG_PATH)")
	return cmd
}
