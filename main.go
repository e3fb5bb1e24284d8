package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drawsyncgo/internal/batch"
	"drawsyncgo/internal/changefeed"
	"drawsyncgo/internal/config"
	"drawsyncgo/internal/database/db_client"
	"drawsyncgo/internal/durability"
	"drawsyncgo/internal/http/http_server"
	"drawsyncgo/internal/http/roomhandler"
	"drawsyncgo/internal/presence"
	"drawsyncgo/internal/redis/redis_client"
	"drawsyncgo/internal/room"
	"drawsyncgo/internal/store"
	"drawsyncgo/internal/ws"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client
	var historyStore store.HistoryStore

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	instanceID := uuid.NewString()

	// 3. History store
	historyStore, err = openStore(ctx, cfg)
	if err != nil {
		Log.Fatal("store-open", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer historyStore.Close()

	// 4. Redis change feed (optional)
	if cfg.RedisEnabled {
		redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		historyStore = changefeed.NewPublishingStore(historyStore, redisClient, instanceID)
		Log.Debug("Redis change feed enabled", zap.String("instance", instanceID))
	}

	// 5. Background: ordered durability writes
	writer := durability.NewWriter(cfg.DurabilityShards, cfg.StoreTimeout)
	mirror := durability.NewMirror(writer, historyStore)

	// 6. Room state + presence
	presenceMgr := presence.NewManager()
	rooms := room.NewRegistry(mirror)

	// 7. WebSockets hub + batch fan-out
	hub := ws.NewHub()
	batcher := batch.New(cfg.BatchInterval, hub.EmitBatch, rooms)
	batcher.Run(ctx)

	// 8. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, ws.Deps{
		Presence:       presenceMgr,
		Rooms:          rooms,
		Batch:          batcher,
		History:        mirror,
		Redis:          redisClient,
		Origin:         instanceID,
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
	})

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv,
		roomhandler.New(rooms, wsSrv, historyStore))
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Start() }()

	select {
	case <-ctx.Done():
		Log.Info("shutdown_requested")
	case err := <-serveErr:
		if err != nil {
			Log.Error("Failed to start HTTP server", zap.Error(err))
		}
	}

	// 10. Graceful shutdown: stop taking traffic, then drain pending writes
	_ = httpServer.Dispose()
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := writer.Close(drainCtx); err != nil {
		Log.Warn("durability_drain", zap.Int("pending", writer.Pending()), zap.Error(err))
	}
	Log.Info("stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.HistoryStore, error) {
	if cfg.StoreDriver == "memory" {
		Log.Warn("memory store selected, history will not survive a restart")
		return store.NewMemoryStore(), nil
	}

	dialect, err := store.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}

	var sqlStore *store.SQLStore
	switch dialect {
	case store.SQLite:
		db, err := db_client.OpenSQLite(cfg.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite-open: %w", err)
		}
		sqlStore = store.NewSQLStore(db, dialect)
	default:
		db, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			return nil, fmt.Errorf("pg-open: %w", err)
		}
		sqlStore = store.NewSQLStore(db, dialect)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := sqlStore.Migrate(migrateCtx); err != nil {
		_ = sqlStore.Close()
		return nil, err
	}
	return sqlStore, nil
}
