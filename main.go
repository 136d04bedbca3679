package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/myparcel/internal/config"
	"github.com/tournevent/myparcel/internal/server"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/internal/telemetry"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "myparcel",
	Short:   "MyParcel shipping service - delivery options, pricing and consignment export",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE:  runMigrate,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and the MyParcel connection",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, checkCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	repo, closeRepo, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	deps := initServices(cfg, repo, logger, tracer)

	logger.Info("Starting MyParcel service",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("mock", cfg.UseMock),
	)

	// Start HTTP server
	srv := server.New(server.Config{Port: cfg.Port}, deps)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.DriverPostgres)
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("Database migrated")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := checkEncryptionKey(cfg); err != nil {
		return err
	}
	repo, closeRepo, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	deps := initServices(cfg, repo, logger, telemetry.Tracer())
	if err := deps.Consignments.TestConnection(ctx); err != nil {
		return fmt.Errorf("MyParcel connection: %w", err)
	}

	logger.Info("Configuration OK",
		zap.String("store", cfg.StoreDriver),
		zap.String("api_base_url", cfg.APIBaseURL),
	)
	return nil
}
