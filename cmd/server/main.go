package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/ride-accounts/internal/config"     // Internal config loader
	"github.com/iliyamo/ride-accounts/internal/database"   // MySQL and MongoDB bootstrap
	"github.com/iliyamo/ride-accounts/internal/handler"    // HTTP handlers
	"github.com/iliyamo/ride-accounts/internal/logging"    // zerolog setup
	"github.com/iliyamo/ride-accounts/internal/mailer"     // welcome mail
	"github.com/iliyamo/ride-accounts/internal/metrics"    // Prometheus registry
	"github.com/iliyamo/ride-accounts/internal/middleware" // session authenticator
	"github.com/iliyamo/ride-accounts/internal/model"      // role descriptors
	"github.com/iliyamo/ride-accounts/internal/queue"      // account event consumer
	"github.com/iliyamo/ride-accounts/internal/repository" // account stores
	"github.com/iliyamo/ride-accounts/internal/router"     // Internal router setup
	"github.com/iliyamo/ride-accounts/internal/service"    // account service
	"github.com/iliyamo/ride-accounts/internal/utils"      // hasher and token issuer
)

func main() {
	_ = godotenv.Load() // a missing .env is fine

	cfg, err := config.Load()
	if err != nil {
		logging.New("prod", "info").Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, checks, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open account store failed")
	}
	defer closeStores()

	if rdb := openRedis(ctx, logger); rdb != nil {
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		cacheCfg := config.LoadCacheConfig()
		for _, d := range model.Roles() {
			stores[d.Role] = repository.NewCachedAccountStore(stores[d.Role], rdb, cacheCfg, d, logger)
		}
	}

	var events service.EventPublisher = service.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		pub := service.NewAMQPPublisher(cfg.RabbitMQURL, 0, logger)
		go pub.Run(ctx)
		events = pub

		var mail queue.WelcomeSender
		if m := mailer.New(config.LoadMailConfig(), logger); m != nil {
			mail = m
		}
		consumer := queue.NewConsumer(cfg.RabbitMQURL, filepath.Join("logs", "accounts.log"), mail, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("account consumer stopped")
			}
		}()
	} else {
		logger.Info().Msg("RABBITMQ_URL not set; account events disabled")
	}

	tokens := utils.NewTokenIssuer(utils.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)

	e := router.New(router.Options{CORSOrigin: cfg.CORSOrigin, BodyLimit: "16K", StaticDir: "public"}, logger)
	router.RegisterRoutes(e, handler.NewHealthHandler(checks), metrics.NewRegistry())
	authenticate := middleware.Authenticate(tokens, stores, logger)
	for _, d := range model.Roles() {
		svc := service.NewAccountService(d, stores[d.Role], hasher, tokens, events, logger)
		router.RegisterAccounts(e, d, handler.NewAccountHandler(svc, cfg.CookieSecure, logger), authenticate, logger)
	}

	serve(ctx, e, ":"+cfg.Port, cfg.Env, logger)
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func serve(ctx context.Context, e *echo.Echo, addr, env string, logger *zerolog.Logger) {
	go func() {
		logger.Info().Str("addr", addr).Str("env", env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStores builds one store per role for the configured driver, along
// with the health checks for it and a function releasing the connections.
func openStores(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (map[model.Role]repository.AccountStore, map[string]handler.Check, func(), error) {
	stores := make(map[model.Role]repository.AccountStore, len(model.Roles()))
	checks := map[string]handler.Check{}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory account store; data is lost on restart")
		for _, d := range model.Roles() {
			stores[d.Role] = repository.NewMemoryAccountRepo(d)
		}
		return stores, checks, func() {}, nil

	case config.StoreMySQL:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, d := range model.Roles() {
			repo, err := repository.NewMySQLAccountRepo(db, d)
			if err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
			stores[d.Role] = repo
		}
		checks["mysql"] = pingSQL(db)
		return stores, checks, func() { _ = db.Close() }, nil

	default:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		for _, d := range model.Roles() {
			repo, err := repository.NewMongoAccountRepo(ctx, logger, db, d)
			if err != nil {
				disconnect()
				return nil, nil, nil, err
			}
			stores[d.Role] = repo
		}
		checks["mongo"] = pingMongo(client)
		return stores, checks, disconnect, nil
	}
}

func pingSQL(db *sql.DB) handler.Check {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

func pingMongo(client *mongo.Client) handler.Check {
	return func(ctx context.Context) error { return client.Ping(ctx, nil) }
}

// openRedis returns a connected client, or nil when the account cache is
// disabled or Redis cannot be reached.
func openRedis(ctx context.Context, logger *zerolog.Logger) *redis.Client {
	if !config.LoadCacheConfig().Enabled {
		return nil
	}
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; account cache disabled")
		return nil
	}
	return rdb
}
