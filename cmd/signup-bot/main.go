package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tarantool/go-tarantool/v2"
	_ "github.com/tarantool/go-tarantool/v2/datetime"
	_ "github.com/tarantool/go-tarantool/v2/decimal"
	_ "github.com/tarantool/go-tarantool/v2/uuid"

	"github.com/Xausdorf/signup-bot/internal/gateway/bot"
	"github.com/Xausdorf/signup-bot/internal/metrics"
	"github.com/Xausdorf/signup-bot/internal/repository/memory"
	redisrepo "github.com/Xausdorf/signup-bot/internal/repository/redis"
	ttrepo "github.com/Xausdorf/signup-bot/internal/repository/tarantool"
	"github.com/Xausdorf/signup-bot/internal/usecase"
)

type tarantoolConfig struct {
	address  string
	user     string
	password string
}

type appConfig struct {
	storage   string
	redisURL  string
	httpAddr  string
	retention time.Duration
}

const (
	ttReconnectSeconds = 3
	ttMaxRecconects    = 5
	janitorInterval    = time.Hour
	shutdownTimeout    = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not read .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadAppConfig()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry, "signup")

	snapshotter, closeStorage := openSnapshotter(ctx, cfg)
	defer closeStorage()

	signupRepo := memory.NewSignupRepository(snapshotter, m)
	if err := signupRepo.Load(ctx); err != nil {
		log.Fatalf("Could not restore signups: %v", err)
	}
	log.Printf("Signups restored: count=%d\n", len(signupRepo.Snapshot()))

	signupService := usecase.NewSignup(signupRepo, m)
	if cfg.retention > 0 {
		go signupService.RunJanitor(ctx, cfg.retention, janitorInterval)
	}

	botConfig := bot.LoadConfig()
	signupBot := bot.NewSignupBot(botConfig)
	router := bot.NewRouter(signupService, signupBot, m, botConfig.Trigger())
	signupBot.SetRouter(router)

	server := &http.Server{
		Addr:              cfg.httpAddr,
		Handler:           newHTTPHandler(bot.NewActionHandler(router, botConfig.ActionSecret()), registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening: addr=%s\n", cfg.httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	go signupBot.Listen(ctx)

	<-ctx.Done()
	log.Println("Shutting down")
	signupBot.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v\n", err)
	}
}

func newHTTPHandler(actions http.Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Mount(bot.ActionsPrefix, actions)

	return r
}

func openSnapshotter(ctx context.Context, cfg appConfig) (usecase.Snapshotter, func()) {
	switch cfg.storage {
	case "redis":
		repo, err := redisrepo.NewSnapshotRepository(ctx, cfg.redisURL)
		if err != nil {
			log.Fatalf("Connection to redis refused: %v", err)
		}
		log.Println("Succesfully connected to redis")
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Printf("Could not close redis connection: %v\n", err)
			}
		}
	case "tarantool":
		conn, err := connectTarantool(ctx, loadTarantoolConfig())
		if err != nil {
			log.Fatalf("Connection to tarantool refused: %v", err)
		}
		log.Println("Succesfully connected to tarantool")
		return ttrepo.NewSnapshotRepository(conn), func() {
			if err := conn.Close(); err != nil {
				log.Printf("Could not close tarantool connection: %v\n", err)
			}
		}
	}
	log.Fatalf("Unknown storage: %q", cfg.storage)
	return nil, nil
}

func loadAppConfig() appConfig {
	var cfg appConfig

	cfg.storage = os.Getenv("STORAGE")
	if cfg.storage == "" {
		cfg.storage = "tarantool"
	}
	cfg.redisURL = os.Getenv("REDIS_URL")
	if cfg.redisURL == "" {
		cfg.redisURL = "redis://127.0.0.1:6379/0"
	}
	cfg.httpAddr = os.Getenv("HTTP_ADDR")
	if cfg.httpAddr == "" {
		cfg.httpAddr = ":8080"
	}
	if raw := os.Getenv("SIGNUP_RETENTION"); raw != "" {
		retention, err := time.ParseDuration(raw)
		if err != nil || retention < 0 {
			log.Fatalf("Invalid SIGNUP_RETENTION %q: expected a non-negative duration", raw)
		}
		cfg.retention = retention
	}

	return cfg
}

func loadTarantoolConfig() tarantoolConfig {
	var cfg tarantoolConfig

	cfg.address = os.Getenv("TT_ADDRESS")
	if cfg.address == "" {
		cfg.address = "127.0.0.1:3301"
	}
	cfg.user = os.Getenv("TT_USER")
	if cfg.user == "" {
		log.Fatal("Tarantool user is not set")
	}
	cfg.password = os.Getenv("TT_PASSWORD")
	if cfg.password == "" {
		log.Fatal("Tarantool password is not set")
	}

	return cfg
}

func connectTarantool(ctx context.Context, cfg tarantoolConfig) (*tarantool.Connection, error) {
	dialer := tarantool.NetDialer{
		Address:  cfg.address,
		User:     cfg.user,
		Password: cfg.password,
	}
	opts := tarantool.Opts{
		Timeout:       time.Second,
		Reconnect:     ttReconnectSeconds * time.Second,
		MaxReconnects: ttMaxRecconects,
	}

	return tarantool.Connect(ctx, dialer, opts)
}
