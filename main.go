// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/cipher-draw/cliparse"
	"github.com/danielhkuo/cipher-draw/db"
	"github.com/danielhkuo/cipher-draw/events"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/metrics"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/danielhkuo/cipher-draw/oracle"
	"github.com/danielhkuo/cipher-draw/router"
)

// sqlitePragmas are applied when the SQLite URL sets none of its own
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

func openDatabase(cfg cliparse.Config) (*sql.DB, error) {
	if cfg.DatabaseType == cliparse.DatabasePostgres {
		return sql.Open("postgres", cfg.DatabaseURL)
	}

	dsn := cfg.DatabaseURL
	if !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqlitePragmas
	}
	return sql.Open("sqlite", dsn)
}

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := openDatabase(cfg)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	clk := clock.New()
	store := db.NewStore(dbConn, clk)
	payouts := db.NewPayoutBook(store)

	fhe, err := oracle.NewDev(cfg.OracleKey)
	if err != nil {
		slog.Error("oracle setup failed", "error", err)
		os.Exit(1)
	}

	var random ledger.RandomSource = ledger.CryptoRandom{}
	if cfg.RandomSeed != "" {
		random = ledger.NewBeaconRandom([]byte(cfg.RandomSeed))
		slog.Info("Using seeded draw randomness")
	}

	hub := events.NewHub(64, cfg.AllowedOrigin)

	// ADMIN_ADDRESS only seeds an empty database
	admin, err := store.EnsureAdmin(context.Background(), cfg.AdminAddress)
	if err != nil {
		slog.Error("admin setup failed", "error", err)
		os.Exit(1)
	}
	if cfg.AdminAddress != (common.Address{}) && cfg.AdminAddress != admin {
		slog.Warn("ADMIN_ADDRESS ignored, database already has an admin",
			"configured", cfg.AdminAddress.Hex(),
			"admin", admin.Hex(),
		)
	}

	l, err := ledger.New(ledger.Config{
		Admin:    admin,
		Random:   random,
		Clock:    clk,
		Verifier: fhe,
		Revealer: fhe,
		Transfer: payouts,
		Journal:  store,
		Sinks:    []ledger.EventSink{hub},
	})
	if err != nil {
		slog.Error("ledger setup failed", "error", err)
		os.Exit(1)
	}

	// Restore persisted rounds
	snap, err := store.Load(context.Background())
	if err != nil {
		slog.Error("ledger load failed", "error", err)
		os.Exit(1)
	}
	if err := l.Restore(snap); err != nil {
		slog.Error("ledger restore failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Ledger ready", "rounds", l.RoundCount(), "admin", l.Admin().Hex())

	collector := metrics.New(l)
	l.AddSink(collector)

	// Create router
	mux := router.NewRouter(router.Deps{
		Ledger:  l,
		Store:   store,
		Payouts: payouts,
		Oracle:  fhe,
		Hub:     hub,
		Metrics: collector,
		Clock:   clk,
	}, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
