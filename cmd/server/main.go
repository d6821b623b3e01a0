package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/iliyamo/parking-rental/internal/config"
	"github.com/iliyamo/parking-rental/internal/database"
	"github.com/iliyamo/parking-rental/internal/handler"
	"github.com/iliyamo/parking-rental/internal/middleware"
	"github.com/iliyamo/parking-rental/internal/queue"
	"github.com/iliyamo/parking-rental/internal/registry"
	"github.com/iliyamo/parking-rental/internal/repository"
	"github.com/iliyamo/parking-rental/internal/router"
	"github.com/iliyamo/parking-rental/internal/service"
	"github.com/iliyamo/parking-rental/internal/stream"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store    registry.Store
		users    handler.UserStore
		tokens   handler.TokenStore
		db       *sql.DB
		tokenDB  *repository.TokenRepo
		accounts *repository.MemoryAccounts
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store = registry.NewMemoryStore()
		accounts = repository.NewMemoryAccounts()
		users, tokens = accounts, accounts
		log.Printf("using in-memory store; state is lost on restart")
	default:
		var err error
		db, err = database.Open(cfg.DB)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		store = repository.NewSpotRepo(db)
		tokenDB = repository.NewTokenRepo(db)
		users, tokens = repository.NewUserRepo(db), tokenDB
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache off, rate limits kept per process")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	hub := stream.NewHub(cfg.CORSOrigins)
	defer hub.Close()
	sinks := []registry.EventSink{hub}
	if rdb != nil && cacheCfg.Enabled {
		sinks = append(sinks, middleware.NewCacheInvalidator(cacheCfg, rdb))
	}
	if cfg.AMQPURL != "" {
		pub := service.NewEventPublisher(cfg.AMQPURL, cfg.EventsQueue)
		defer pub.Close()
		sinks = append(sinks, pub)
		go func() {
			if err := queue.StartEventConsumer(ctx, cfg.AMQPURL, cfg.EventsQueue, cfg.EventsLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event-consumer: stopped: %v", err)
			}
		}()
	}

	owner, err := service.EnsureOwner(ctx, users, cfg.OwnerEmail, cfg.OwnerPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("owner account: %v", err)
	}
	reg, err := registry.New(ctx, store, owner, sinks...)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}

	if tokenDB != nil {
		go purgeRefreshTokens(ctx, tokenDB)
	}

	e := newEcho(cfg, rdb, cacheCfg, reg, users, tokens, db, hub)
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: !slices.Contains(cfg.CORSOrigins, "*"),
		}).Handler(e),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (env=%s, store=%s, owner=%s)", srv.Addr, cfg.Env, cfg.StoreDriver, reg.Owner())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Printf("server stopped")
}

func newEcho(cfg config.Config, rdb *redis.Client, cacheCfg config.CacheConfig, reg *registry.Registry,
	users handler.UserStore, tokens handler.TokenStore, db *sql.DB, hub *stream.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	spots := handler.NewSpotHandler(reg)
	router.RegisterRoutes(e, &handler.HealthHandler{DB: db})
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, reg.Owner(), users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, spots, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterSpots(e, spots, handler.NewLedgerHandler(reg), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterEvents(e, hub)
	return e
}

func purgeRefreshTokens(ctx context.Context, tokens *repository.TokenRepo) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("token-purge: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token-purge: removed %d expired refresh tokens", n)
			}
		}
	}
}

func logLevel(s string) glog.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	}
	return glog.INFO
}
