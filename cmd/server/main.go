// Command server runs the order-ahead sync engine: the HTTP API, the
// realtime notification stream and their storage backends.
//
// @title                       Order-ahead sync engine API
// @version                     1.0
// @description                 Orders, catalog and the realtime notification stream.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/orderahead/sync-engine/internal/api"
	"github.com/orderahead/sync-engine/internal/api/handler"
	"github.com/orderahead/sync-engine/internal/core/service"
	"github.com/orderahead/sync-engine/internal/infrastructure/db/mongo"
	"github.com/orderahead/sync-engine/internal/infrastructure/db/postgres"
	"github.com/orderahead/sync-engine/internal/infrastructure/db/redis"
	"github.com/orderahead/sync-engine/internal/infrastructure/http/handlers"
	"github.com/orderahead/sync-engine/internal/infrastructure/queue"
	"github.com/orderahead/sync-engine/internal/pkg/config"
	"github.com/orderahead/sync-engine/internal/realtime"
	"github.com/orderahead/sync-engine/pkg/logger"
	"github.com/orderahead/sync-engine/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "sync-engine",
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// --- Storage ---
	pool, err := postgres.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, log)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("postgres schema failed")
	}

	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() {
		disconnectCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	catalogRepo := mongo.NewCatalogRepository(mongoDB)
	if err := catalogRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes failed")
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer rdb.Close()

	// --- Realtime ---
	hub := realtime.NewHub(log)
	publisher := service.NewPublisher(hub, log)
	inbound := queue.NewDispatcher(cfg.Websocket.InboundWorkers, service.NewInboundRelay(publisher, log), log)
	inbound.Start(ctx)

	// --- Services ---
	numbers, err := service.NewSnowflakeNumbers(cfg.Orders.NodeID)
	if err != nil {
		log.Fatal().Err(err).Msg("order number generator failed")
	}
	orders := service.NewOrderService(
		postgres.NewUnitOfWork(pool),
		postgres.NewOrderRepository(pool),
		publisher,
		redis.NewIdempotencyStore(rdb),
		numbers,
		service.OrderServiceConfig{
			TxTimeout:      cfg.Orders.TxTimeout,
			IdempotencyTTL: cfg.Orders.IdempotencyTTL,
			NumberAttempts: cfg.Orders.NumberAttempts,
		},
		log,
	)
	catalog := service.NewCatalogService(catalogRepo, publisher, log)
	auth := service.NewConnectionAuthenticator(cfg.JWTSecret, postgres.NewUserRepository(pool), cfg.Websocket.AuthTimeout, log)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Logger:        log,
		Production:    cfg.IsProduction(),
		Authenticator: auth,
		Orders:        orders,
		Catalog:       catalog,
		Realtime: handler.NewRealtimeHandler(auth, hub, inbound, realtime.ClientConfig{
			SendBuffer:      cfg.Websocket.SendBuffer,
			PingInterval:    cfg.Websocket.PingInterval,
			WriteWait:       cfg.Websocket.WriteWait,
			MaxMessageBytes: cfg.Websocket.MaxMessageBytes,
		}, cfg.Websocket.AuthTimeout, log),
		HealthChecks: map[string]handlers.Check{
			"postgres": pool.Ping,
			"mongodb":  func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// hijacked websocket connections are not tracked by the server
	hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("sync-engine shutdown complete")
}
