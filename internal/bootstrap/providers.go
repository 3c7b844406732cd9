package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/catalog"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/config"
	apphttp "gitlab.com/timkado/web/storefront-state/internal/adapters/http"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/memory"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/middleware"
	appnats "gitlab.com/timkado/web/storefront-state/internal/adapters/nats"
	appredis "gitlab.com/timkado/web/storefront-state/internal/adapters/redis"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/rest"
	appsqlite "gitlab.com/timkado/web/storefront-state/internal/adapters/sqlite"
	"gitlab.com/timkado/web/storefront-state/internal/application"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/eventloop"
)

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,

	// Infrastructure
	EventLoopProvider,
	ClockProvider,
	wire.Bind(new(domain.Clock), new(*eventloop.Clock)),
	StorageProvider,
	CatalogSourceProvider,
	OrderGatewayProvider,
	OrderEventPublisherProvider,
	AddressBookProvider,

	// Application services
	PricingProvider,
	application.NewOrderCalculator,
	CartProvider,
	WishlistProvider,
	SessionManagerProvider,
	OrderServiceProvider,
	CatalogServiceProvider,

	// HTTP
	apphttp.NewHandlers,
	ReadinessChecksProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,
	NewApp,
)

// ReadinessChecks is the list of dependency probes behind /ready.
type ReadinessChecks []apphttp.DependencyCheck

// Storage is the selected durable store plus its readiness probe, if it has one.
type Storage struct {
	KV     domain.KVStore
	Driver string
	Ping   func(ctx context.Context) error
}

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
		fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example logger: %v\n", err)
	}
	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// ConfigProvider provides the application configuration; appCtx bounds the reload goroutines.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider)
}

// EventLoopProvider provides the loop that owns every store. It is started by App.Run.
func EventLoopProvider(cfgProvider config.Provider, appLogger domain.Logger) *eventloop.Loop {
	return eventloop.New(appLogger, cfgProvider.Get().App.EventQueueSize)
}

// ClockProvider provides the wall clock whose timers fire on the event loop.
func ClockProvider(loop *eventloop.Loop) *eventloop.Clock {
	return eventloop.NewClock(loop)
}

// StorageProvider opens the KV store selected by storage.driver.
func StorageProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (Storage, func(), error) {
	cfg := cfgProvider.Get()
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			appLogger.Error(ctx, "Failed to connect to Redis", "error", err.Error(), "address", cfg.Redis.Address)
			_ = client.Close()
			return Storage{}, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Address, err)
		}
		appLogger.Info(ctx, "Successfully connected to Redis", "address", cfg.Redis.Address)
		kv := appredis.NewKVStoreAdapter(client, appLogger)
		cleanup := func() {
			_ = client.Close()
			appLogger.Info(context.Background(), "Redis connection closed")
		}
		return Storage{KV: kv, Driver: config.StorageRedis, Ping: kv.Ping}, cleanup, nil

	case config.StorageSQLite:
		store, err := appsqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			appLogger.Error(ctx, "Failed to open SQLite store", "path", cfg.Storage.SQLitePath, "error", err.Error())
			return Storage{}, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		appLogger.Info(ctx, "Opened SQLite store", "path", cfg.Storage.SQLitePath)
		cleanup := func() {
			if err := store.Close(); err != nil {
				appLogger.Error(context.Background(), "Failed to close SQLite store", "error", err.Error())
			}
		}
		return Storage{KV: store, Driver: config.StorageSQLite, Ping: store.Ping}, cleanup, nil

	default:
		appLogger.Warn(ctx, "Using in-memory storage; state will not survive a restart")
		return Storage{KV: memory.NewKVStore(), Driver: config.StorageMemory}, func() {}, nil
	}
}

func restClient(cfg *config.Config, appLogger domain.Logger) (*rest.Client, error) {
	return rest.NewClient(cfg.Catalog.BaseURL, time.Duration(cfg.Catalog.RequestTimeoutMs)*time.Millisecond, appLogger)
}

// CatalogSourceProvider provides the product source selected by catalog.source.
func CatalogSourceProvider(cfgProvider config.Provider, appLogger domain.Logger) (domain.CatalogSource, error) {
	cfg := cfgProvider.Get()
	if cfg.Catalog.Source == config.SourceREST {
		client, err := restClient(cfg, appLogger)
		if err != nil {
			return nil, fmt.Errorf("catalog source: %w", err)
		}
		return rest.NewCatalogSource(client), nil
	}
	latency := time.Duration(cfg.Catalog.SimulatedLatencyMs) * time.Millisecond
	return catalog.NewFixtureSource(nil, latency), nil
}

// OrderGatewayProvider provides the order backend selected by order.gateway.
func OrderGatewayProvider(cfgProvider config.Provider, appLogger domain.Logger) (domain.OrderGateway, error) {
	cfg := cfgProvider.Get()
	if cfg.Order.Gateway == config.SourceREST {
		client, err := restClient(cfg, appLogger)
		if err != nil {
			return nil, fmt.Errorf("order gateway: %w", err)
		}
		return rest.NewOrderGateway(client), nil
	}
	return memory.NewOrderGateway(time.Duration(cfg.Catalog.SimulatedLatencyMs) * time.Millisecond), nil
}

// OrderEventPublisherProvider connects to NATS when nats.url is set and otherwise drops events.
func OrderEventPublisherProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (domain.OrderEventPublisher, func(), error) {
	if cfgProvider.Get().NATS.URL == "" {
		appLogger.Info(ctx, "NATS not configured; order events will not be published")
		return appnats.NopPublisher{}, func() {}, nil
	}
	publisher, cleanup, err := appnats.NewPublisherAdapter(ctx, cfgProvider, appLogger)
	if err != nil {
		return nil, nil, err
	}
	return publisher, cleanup, nil
}

// AddressBookProvider provides the saved-address lookup.
func AddressBookProvider() domain.AddressBook {
	return memory.NewAddressBook()
}

// PricingProvider parses the order pricing rules from config.
func PricingProvider(cfgProvider config.Provider) (application.PricingConfig, error) {
	o := cfgProvider.Get().Order
	taxRate, err := decimal.NewFromString(o.TaxRate)
	if err != nil {
		return application.PricingConfig{}, fmt.Errorf("order.tax_rate: %w", err)
	}
	threshold, err := decimal.NewFromString(o.FreeShippingThreshold)
	if err != nil {
		return application.PricingConfig{}, fmt.Errorf("order.free_shipping_threshold: %w", err)
	}
	fee, err := decimal.NewFromString(o.FlatShippingFee)
	if err != nil {
		return application.PricingConfig{}, fmt.Errorf("order.flat_shipping_fee: %w", err)
	}
	return application.PricingConfig{TaxRate: taxRate, FreeShippingThreshold: threshold, FlatShippingFee: fee}, nil
}

// CartProvider loads the cart.
func CartProvider(ctx context.Context, storage Storage, cfgProvider config.Provider, appLogger domain.Logger) *application.Cart {
	return application.NewCart(ctx, storage.KV, appLogger, cfgProvider.Get().Storage.Namespace)
}

// WishlistProvider loads the wishlist.
func WishlistProvider(ctx context.Context, storage Storage, clock domain.Clock, cfgProvider config.Provider, appLogger domain.Logger) *application.Wishlist {
	return application.NewWishlist(ctx, storage.KV, clock, appLogger, cfgProvider.Get().Storage.Namespace)
}

// SessionManagerProvider restores the persisted session.
func SessionManagerProvider(ctx context.Context, storage Storage, clock domain.Clock, cfgProvider config.Provider, appLogger domain.Logger) *application.SessionManager {
	cfg := cfgProvider.Get()
	return application.NewSessionManager(ctx, storage.KV, clock, appLogger, cfg.Storage.Namespace, cfg.SessionTTL())
}

// OrderServiceProvider provides the OrderService. Its state steps run on the event loop.
func OrderServiceProvider(
	ctx context.Context,
	calc *application.OrderCalculator,
	addresses domain.AddressBook,
	gateway domain.OrderGateway,
	publisher domain.OrderEventPublisher,
	cart *application.Cart,
	session *application.SessionManager,
	loop *eventloop.Loop,
	storage Storage,
	clock domain.Clock,
	cfgProvider config.Provider,
	appLogger domain.Logger,
) *application.OrderService {
	return application.NewOrderService(ctx, application.OrderServiceDeps{
		Calculator: calc,
		Addresses:  addresses,
		Gateway:    gateway,
		Publisher:  publisher,
		Cart:       cart,
		Session:    session,
		Executor:   loop,
		KV:         storage.KV,
		Clock:      clock,
		Logger:     appLogger,
		Namespace:  cfgProvider.Get().Storage.Namespace,
	})
}

// CatalogServiceProvider provides the cached catalog.
func CatalogServiceProvider(source domain.CatalogSource, clock domain.Clock, cfgProvider config.Provider, appLogger domain.Logger) *application.CatalogService {
	return application.NewCatalogService(source, clock, appLogger, cfgProvider.Get().CatalogCacheTTL())
}

// ReadinessChecksProvider lists the probes for the configured backends.
func ReadinessChecksProvider(storage Storage, publisher domain.OrderEventPublisher) ReadinessChecks {
	var checks ReadinessChecks
	if storage.Ping != nil {
		checks = append(checks, apphttp.DependencyCheck{Name: storage.Driver, Check: storage.Ping})
	}
	if p, ok := publisher.(*appnats.PublisherAdapter); ok {
		checks = append(checks, apphttp.DependencyCheck{Name: "nats", Check: func(context.Context) error {
			if !p.Connected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}})
	}
	return checks
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the HTTP server; every request gets a request id and an access log entry.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux, appLogger domain.Logger) *http.Server {
	cfg := cfgProvider.Get()
	handler := middleware.RequestIDMiddleware(middleware.AccessLogMiddleware(appLogger)(mux))
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// App holds the wired application.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	loop           *eventloop.Loop
	handlers       *apphttp.Handlers
	readiness      ReadinessChecks
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	loop *eventloop.Loop,
	handlers *apphttp.Handlers,
	readiness ReadinessChecks,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServeMux:   mux,
		httpServer:     server,
		loop:           loop,
		handlers:       handlers,
		readiness:      readiness,
	}
	cleanup := func() {
		app.loop.Stop()
		app.loop.Wait()
	}
	return app, cleanup, nil
}
