package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"

	boardcache "rolling-paper/cache"
	"rolling-paper/contract"
	"rolling-paper/domain"
	"rolling-paper/export"
	"rolling-paper/infrastructure/api"
	"rolling-paper/internal"
	"rolling-paper/moderation"
	"rolling-paper/repositories"
	"rolling-paper/runtime"
	"rolling-paper/runtime/workers"
	"rolling-paper/search"
	"rolling-paper/services"
	"rolling-paper/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. Returning an error instead of calling os.Exit
// keeps every defer (store close, index close) running on the way out.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	groups := domain.NewGroupSet(config.Groups)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Message store
	var store contract.MessageStore
	var watcher runtime.StoreWatcher
	switch strings.ToLower(config.StorageBackend) {
	case "badger":
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.INFO))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		if log.Enabled(ctx, slog.LevelDebug) {
			debugPort := config.Port + 1
			endpoint := "/inspect"
			log.Info("Debug board inspector available", "url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
			internal.StartDebugServer(db, debugPort, endpoint, boardMapper, nil)
		}
		badgerStore := repositories.NewBadgerStore(db, log)
		store, watcher = badgerStore, badgerStore
	case "logfile":
		logStore, err := repositories.NewLogStore(config.MessageLogFilepath, log)
		if err != nil {
			return fmt.Errorf("message log opening failed: %w", err)
		}
		store = logStore
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want badger or logfile)", config.StorageBackend)
	}
	defer func() {
		log.Info("Closing message store...")
		_ = store.Close()
	}()

	// 4. Redis (optional, shared by cache and pub/sub broadcast)
	var rdb *redis.Client
	if config.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		defer func() { _ = rdb.Close() }()
	}

	var listCache contract.ListCache = boardcache.Disabled{}
	if rdb != nil {
		listCache = boardcache.NewRedisCache(rdb, config.ListCacheTTL, config.MessageCacheTTL, log)
	}

	// 5. Change notifications
	var notifier contract.Notifier
	switch strings.ToLower(config.BroadcastMode) {
	case "local":
		notifier = runtime.NewLocalNotifier(config.BufferSize, log)
	case "store":
		if watcher == nil {
			return fmt.Errorf("BROADCAST_MODE=store requires the badger backend")
		}
		notifier = runtime.NewStoreNotifier(ctx, watcher, config.BufferSize, log)
	case "redis":
		if rdb == nil {
			return fmt.Errorf("BROADCAST_MODE=redis requires REDIS_ADDR")
		}
		notifier = runtime.NewRedisNotifier(ctx, rdb, config.BufferSize, log)
	default:
		return fmt.Errorf("unknown BROADCAST_MODE %q (want local, store or redis)", config.BroadcastMode)
	}
	defer func() { _ = notifier.Close() }()

	// 6. Board service & sinks
	service := services.NewBoardService(store, listCache, notifier, groups, log)

	transcriptSink, err := sink.NewTranscriptSink(store, config.TranscriptDir, log)
	if err != nil {
		return fmt.Errorf("transcript directory setup failed: %w", err)
	}
	service.AddSinks(transcriptSink)

	if config.CensoredWordsFile != "" {
		words, err := moderation.LoadWords(config.CensoredWordsFile)
		if err != nil {
			return fmt.Errorf("loading censored words: %w", err)
		}
		replacement, err := characterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		moderator, err := moderation.NewModerator(words, replacement)
		if err != nil {
			return fmt.Errorf("building moderator: %w", err)
		}
		service.WithModerator(moderator)
		log.Info(fmt.Sprintf("%d censored words loaded", len(words)))
	}

	if config.BlugeFilepath != "" {
		index, err := search.Open(config.BlugeFilepath)
		if err != nil {
			return fmt.Errorf("failed to open search index: %w", err)
		}
		defer func() {
			log.Info("Closing search index...")
			_ = index.Close()
		}()
		service.WithIndex(index)
		service.AddSinks(sink.NewSearchSink(index, store, log))
	}

	// 7. Supervision & live-update fanout
	broadcaster := workers.NewBroadcaster(config.ConnectionBufferSize, log)
	sup := workers.NewSupervisor(log, config.RestartInterval).Add(
		workers.NewFanoutWorker(log, notifier, service, broadcaster),
		workers.NewHeartbeatWorker(log, config.MetricInterval, broadcaster),
	)
	go sup.Run(ctx)

	// 8. HTTP Server
	archive := export.NewBuilder(service, config.DownloadPassword, log)
	server := api.NewServer(service, broadcaster, archive, config.HeartbeatInterval, log)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not finish cleanly", "error", err)
	}
	sup.Stop()
	broadcaster.Drain()
	log.Info("Program stopped cleanly")

	return nil
}

// boardMapper renders stored messages for the debug inspector.
func boardMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	var m domain.Message
	if err := json.Unmarshal(val, &m); err != nil {
		return row
	}

	row.Group = string(m.Group)
	row.Author = m.Author
	row.Likes = fmt.Sprintf("%d", m.Likes)
	row.When = time.UnixMilli(m.Timestamp).Format("15:04:05")
	if m.IsPrivate {
		row.Detail = "(private)"
		row.Private = "yes"
	} else {
		row.Detail = m.Content
		row.Private = "no"
	}
	return row
}
