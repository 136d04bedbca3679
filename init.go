package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/myparcel/internal/config"
	"github.com/tournevent/myparcel/internal/consignment"
	"github.com/tournevent/myparcel/internal/fulfillment"
	"github.com/tournevent/myparcel/internal/orders"
	"github.com/tournevent/myparcel/internal/pricing"
	"github.com/tournevent/myparcel/internal/secrets"
	"github.com/tournevent/myparcel/internal/server"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/internal/telemetry"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return telemetry.Tracer(), func(context.Context) error { return nil }, nil
	}

	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
}

// initRepository opens the configured store. Postgres is pinged so that a
// bad DATABASE_URL fails at startup.
func initRepository(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (store.Repository, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("Using the in-memory store; consignments are lost on restart")
		return store.NewMemoryRepository(), func() {}, nil
	}

	db, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}
	return store.NewPostgresRepository(db), func() { sqlDB.Close() }, nil
}

func checkEncryptionKey(cfg *config.Config) error {
	if _, err := secrets.ParseKey(cfg.SettingsEncryptionKey); err != nil {
		return fmt.Errorf("MYPARCEL_SETTINGS_ENCRYPTION_KEY: %w", err)
	}
	return nil
}

// initServices builds the service graph behind the HTTP server.
func initServices(cfg *config.Config, repo store.Repository, logger *otelzap.Logger, tracer trace.Tracer) server.Deps {
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	var api myparcel.APIClient
	var fetcher deliveryoptions.Fetcher
	if cfg.UseMock {
		logger.Warn("Using mock MyParcel clients")
		api = myparcel.NewMockAPIClient()
		fetcher = deliveryoptions.NewMockFetcher(mockDeliveries, mockPickups)
	} else {
		api = myparcel.NewHTTPAPIClient(myparcel.HTTPAPIClientConfig{
			BaseURL:   cfg.APIBaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
		})
		client := deliveryoptions.New(deliveryoptions.Config{
			BaseURL:   cfg.DeliveryOptionsURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
			CacheTTL:  cfg.DeliveryOptionsCacheTTL,
		}, logger)
		metrics.RegisterCache(client.Cache())
		fetcher = client
	}

	if err := checkEncryptionKey(cfg); err != nil {
		logger.Warn("Settings encryption key is not usable; API key operations will fail", zap.Error(err))
	}

	var orderStore orders.Store
	if cfg.OrderServiceURL != "" {
		orderStore = orders.NewHTTPStore(orders.HTTPStoreConfig{
			BaseURL: cfg.OrderServiceURL,
			Token:   cfg.OrderServiceToken,
			Timeout: cfg.HTTPTimeout,
		})
	} else {
		logger.Warn("ORDER_SERVICE_URL is not set; order lookups will fail")
		orderStore = orders.NewStaticStore()
	}

	consignments := consignment.New(consignment.Config{
		DefaultLabelFormat: cfg.DefaultLabelFormat,
	}, consignment.Deps{
		Repo:    repo,
		API:     api,
		Options: fetcher,
		Cipher:  secrets.NewCipher(cfg.SettingsEncryptionKey),
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	})

	return server.Deps{
		Consignments: consignments,
		Orders:       orderStore,
		Fulfillment:  fulfillment.NewProvider(pricing.NewResolver(fetcher, logger, metrics, tracer)),
		Options:      fetcher,
		Logger:       logger,
		Metrics:      metrics,
	}
}

var mockDeliveries = []jsonmap.Map{
	{
		"date":          "2024-05-02 00:00:00.000000",
		"possibilities": []any{
			map[string]any{
				"delivery_time_frames": []any{
					map[string]any{"type": "start", "date_time": map[string]any{"date": "2024-05-02 09:00:00.000000"}},
					map[string]any{"type": "end", "date_time": map[string]any{"date": "2024-05-02 17:00:00.000000"}},
				},
				"type": "standard",
			},
		},
	},
}

var mockPickups = []jsonmap.Map{
	{
		"retail_network_id": "PNPBE-01",
		"location":          map[string]any{
			"location_code": "176227",
			"location_name": "Mock Parcel Point",
			"street":        "Grote Markt",
			"number":        "1",
			"postal_code":   "1000",
			"city":          "Brussel",
			"cc":            "BE",
		},
	},
}
