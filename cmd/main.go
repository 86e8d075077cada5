package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amirphl/alertdesk/internal/config"
	"github.com/amirphl/alertdesk/internal/db"
	"github.com/amirphl/alertdesk/internal/db/conf"
	"github.com/amirphl/alertdesk/internal/journal"
	"github.com/amirphl/alertdesk/internal/market"
	"github.com/amirphl/alertdesk/internal/metrics"
	"github.com/amirphl/alertdesk/internal/notifier"
	"github.com/amirphl/alertdesk/internal/presenter"
	"github.com/amirphl/alertdesk/internal/reconcile"
	"github.com/amirphl/alertdesk/internal/remote"
	"github.com/amirphl/alertdesk/internal/store"
	"github.com/amirphl/alertdesk/internal/stream"
	"github.com/amirphl/alertdesk/internal/utils"
	"github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()
	logger := utils.InitLogger(cfg.Production)
	defer logger.Sync()
	logger.Infof("Starting alertdesk against %s", cfg.ServiceURL)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v, shutting down...", sig)
		cancel()
	}()

	storage, closeStorage := openJournal(ctx, cfg)
	defer closeStorage()
	if cfg.JournalRetention > 0 {
		go pruneJournal(ctx, storage, cfg.JournalRetention)
	}

	directory := loadDirectory(ctx, cfg)
	notify := notifier.NewQueued(buildNotifier(cfg), 0)
	defer notify.Close()
	m := metrics.New()

	creds := remote.Credentials{Token: cfg.AuthToken, SessionID: cfg.SessionID}
	client := remote.NewClient(cfg.ServiceURL, creds, remote.Options{Timeout: cfg.RequestTimeout})

	board := presenter.NewBoard()
	adapter := presenter.NewAdapter(
		presenter.Sinks{presenter.NewLogSink(logger), board},
		notify,
		presenter.Formatters{Price: market.PriceFormatter(directory)},
	)

	engine, err := reconcile.New(reconcile.Deps{
		Store:    store.New(cfg.HistoricalCapacity),
		Service:  client,
		Markets:  directory,
		Notifier: notify,
		Listener: adapter,
		Journal:  storage,
		Metrics:  m,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	engine.RefreshAllAsync(ctx)

	if cfg.PushURL != "" {
		push := stream.NewClient(cfg.PushURL, engine, stream.Options{
			Header:    creds.Header(),
			OnConnect: engine.RefreshAllAsync,
		})
		push.Start(ctx)
		defer push.Close()
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, m, board)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	refreshLoop(ctx, engine, cfg.RefreshInterval)
	logger.Info("Shutdown complete")
}

// refreshLoop reconciles both collections every interval until ctx is done.
func refreshLoop(ctx context.Context, engine *reconcile.Engine, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.RefreshAllAsync(ctx)
		}
	}
}

// pruneJournal drops journal events older than retention, once at start and
// then hourly.
func pruneJournal(ctx context.Context, storage db.Storage, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if err := db.PruneEvents(ctx, storage, time.Now().Add(-retention), journal.Types...); err != nil && ctx.Err() == nil {
			utils.GetLogger().Warnf("Main | journal retention: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func buildNotifier(cfg config.Config) notifier.Notifier {
	var n notifier.Multi
	n = append(n, notifier.NewTerminalNotifier(os.Stderr))
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		n = append(n, notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.ProxyURL, cfg.NotificationRetries, cfg.NotificationDelay))
	}
	if !cfg.Sound {
		return notifier.Silent{Notifier: n}
	}
	return n
}

func loadDirectory(ctx context.Context, cfg config.Config) market.Directory {
	static := market.NewStaticDirectory()
	for _, mc := range cfg.Markets {
		static.Add(market.Market{MarketID: mc.MarketID, Symbol: mc.Symbol, Precision: mc.Precision})
	}
	if cfg.WallexAPIKey == "" {
		return static
	}

	wallexDir := market.NewWallexDirectory(cfg.WallexAPIKey, static)
	if err := wallexDir.Load(ctx); err != nil {
		utils.GetLogger().Warnf("Main | market directory: %v", err)
	}
	return wallexDir
}

func openJournal(ctx context.Context, cfg config.Config) (db.Storage, func()) {
	if cfg.JournalDSN == "" {
		return db.NewMemory(0), func() {}
	}

	if err := ensureDatabase(ctx, cfg.JournalDSN); err != nil {
		log.Fatalf("Failed to prepare journal database: %v", err)
	}
	dbConfig, err := conf.NewConfig(cfg.JournalDSN, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		log.Fatalf("Failed to create DB config: %v", err)
	}
	pg, err := db.New(*dbConfig)
	if err != nil {
		log.Fatalf("Failed to initialize journal: %v", err)
	}
	if err := pg.CreateSchema(ctx); err != nil {
		log.Fatalf("Failed to create journal schema: %v", err)
	}
	utils.GetLogger().Info("Main | journal connected to Postgres")
	return pg, func() { pg.Close() }
}

// ensureDatabase creates the database named in connStr if it doesn't exist.
func ensureDatabase(ctx context.Context, connStr string) error {
	u, err := url.Parse(connStr)
	if err != nil || u.Scheme == "" {
		// key=value DSNs are used as-is
		return nil
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name not found in connection string")
	}

	base := *u
	base.Path = "/postgres"
	baseDB, err := sql.Open("postgres", base.String())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer baseDB.Close()

	var exists bool
	err = baseDB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if !exists {
		utils.GetLogger().Infof("Main | creating database %s", dbName)
		if _, err := baseDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}
	return nil
}

func serveMetrics(addr string, m *metrics.Metrics, board *presenter.Board) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/alerts", board)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.GetLogger().Errorf("Main | metrics server: %v", err)
		}
	}()
	utils.GetLogger().Infof("Main | serving /metrics and /alerts on %s", addr)
	return srv
}
