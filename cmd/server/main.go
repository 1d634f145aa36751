package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/devchat/devchat/internal/api"
	"github.com/devchat/devchat/internal/chat"
	"github.com/devchat/devchat/internal/config"
	"github.com/devchat/devchat/internal/database"
	"github.com/devchat/devchat/internal/stats"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	seed           bool
	adminUsername  string
	adminEmail     string
	adminPassword  string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&seed, "seed", false, "seed roles, permissions and the admin account")
	flag.StringVar(&adminUsername, "admin-username", "devx", "seeded admin username")
	flag.StringVar(&adminEmail, "admin-email", "devx@example.com", "seeded admin email")
	flag.StringVar(&adminPassword, "admin-password", "", "seeded admin password, required with -seed")
	flag.Parse()

	logger := log.New(os.Stderr, "[devchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	if seed {
		if adminPassword == "" {
			logger.Fatal("seed: -admin-password is required")
		}
		if err := dbConn.Seed(adminUsername, adminEmail, adminPassword); err != nil {
			logger.Fatal("seed:", err)
		}
		logger.Println("database seeded")
	}

	mux := http.NewServeMux()

	recorder := stats.NewRecorder(mux)

	chatService := chat.NewService(logger, dbConn, recorder)

	srv := api.NewApp(mux, logger, dbConn, chatService, cfg)

	recorder.Run()
	defer recorder.Stop()

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
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
