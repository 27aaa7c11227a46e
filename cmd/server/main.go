package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/config"
	"github.com/smartclaim/intake/internal/db"
	"github.com/smartclaim/intake/internal/dispatch"
	httpapi "github.com/smartclaim/intake/internal/http"
	"github.com/smartclaim/intake/internal/mq"
	"github.com/smartclaim/intake/internal/service"
	"github.com/smartclaim/intake/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "intake",
		Short:         "Multimodal claim intake service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func setup() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "claim-intake").Str("env", cfg.Env).Logger()
	return cfg, logger, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			store, err := db.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			logger.Info().Msg("schema applied")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger, migrate bool) error {
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect db")
		return err
	}
	defer store.Close()
	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	routing, err := service.LoadRoutingTable(cfg.RoutingTablePath)
	if err != nil {
		return err
	}

	var publisher mq.Publisher
	if cfg.AMQPURL != "" {
		rp, err := mq.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// Events are best-effort; run without them.
			logger.Warn().Err(err).Msg("rabbitmq unavailable, ticket events disabled")
		} else {
			defer rp.Close()
			publisher = rp
		}
	}

	dispatcher := dispatch.New(logger.With().Str("component", "dispatch").Logger(), dispatch.WithBufferSize(cfg.DispatchBuffer))

	pipeline := service.NewPipeline(cfg, service.Deps{
		Store:      store,
		Storage:    storage.LocalStore{Dir: cfg.StorageDir, BaseURL: cfg.StorageBaseURL},
		AI:         ai.FromEndpoints(cfg.Endpoints, logger),
		Routing:    routing,
		Publisher:  publisher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	router := httpapi.Router(cfg, store, pipeline, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	// Post-commit tasks of in-flight requests drain after the listener stops.
	dispatcher.Close()
	logger.Info().Msg("server stopped")
	return nil
}
