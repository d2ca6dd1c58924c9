package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/go-chats/internal/api"
	"github.com/npezzotti/go-chats/internal/config"
	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*s = append(*s, v)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	dsn            string
	signingKey     string
	skipMigrations bool
	allowedOrigins stringSliceFlag
)

func main() {
	logger := log.New(os.Stderr, "[go-chats] ", log.LstdFlags)

	// a missing .env is fine, the environment or flags may carry everything
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Println("load .env:", err)
	}

	skipDefault, _ := strconv.ParseBool(envOr("GOCHATS_SKIP_MIGRATIONS", "false"))

	flag.StringVar(&addr, "addr", envOr("GOCHATS_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("GOCHATS_DSN", "host=localhost user=postgres password=postgres dbname=gochats sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("GOCHATS_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.BoolVar(&skipMigrations, "skip-migrations", skipDefault, "do not apply database migrations on startup")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		allowedOrigins.Set(envOr("GOCHATS_ALLOWED_ORIGINS", "http://localhost:3000"))
	}

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.SkipMigrations = skipMigrations

	if !cfg.SkipMigrations {
		if err := database.Migrate(cfg.DatabaseDSN); err != nil {
			logger.Fatal("migrate:", err)
		}
		logger.Println("database schema is up to date")
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	srv := api.NewChatApp(mux, logger, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
