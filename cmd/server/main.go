package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/config"
	"github.com/iliyamo/travel-seat-reservation/internal/database"
	"github.com/iliyamo/travel-seat-reservation/internal/handler"
	"github.com/iliyamo/travel-seat-reservation/internal/middleware"
	"github.com/iliyamo/travel-seat-reservation/internal/queue"
	"github.com/iliyamo/travel-seat-reservation/internal/realtime"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
	"github.com/iliyamo/travel-seat-reservation/internal/router"
)

// backend is what both store drivers provide.
type backend interface {
	booking.Store
	handler.DepartureCatalog
	handler.DepartureScheduler
}

type storage struct {
	store  backend
	users  handler.UserStore
	tokens handler.TokenStore
	checks []handler.Check
	close  func()
}

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.DemoSeed {
		seedDemo(ctx, cfg, st, log)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
		st.checks = append(st.checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	// Realtime: one broker per process, optionally bridged through Redis.
	broker := realtime.NewBroker(log)
	var pub realtime.Publisher = broker
	if cfg.Fanout == config.FanoutRedis && rdb != nil {
		pub = startFanout(ctx, cfg, broker, rdb, log)
	} else {
		log.Warn("single-process broker", "fanout", cfg.Fanout, "redis", rdb != nil)
	}
	relay := realtime.NewRelay(pub, cfg.SelectionTTL, log)
	defer relay.Close()
	broadcaster := realtime.NewBroadcaster(pub, st.store)

	opts := []booking.Option{
		booking.WithAvailabilityPublisher(broadcaster),
		booking.WithEventPublisher(broadcaster),
		booking.WithModificationCutoff(cfg.ModificationCutoff),
		booking.WithAdvisoryChecks(cfg.AdvisoryChecks),
		booking.WithLogger(log),
	}
	if cfg.RabbitURL != "" {
		events, err := queue.NewPublisher(cfg.RabbitURL, cfg.EventsQueue)
		if err != nil {
			// Booking still works without the event stream.
			log.Warn("rabbitmq_unavailable", "error", err)
		} else {
			defer events.Close()
			opts = append(opts, booking.WithEventPublisher(events))
			consumer := queue.NewConsumer(cfg.RabbitURL, cfg.EventsQueue, cfg.BookingLogPath, log)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("consumer_exit", "error", err)
				}
			}()
		}
	}
	svc := booking.NewService(st.store, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))

	bh := handler.NewBookingHandler(svc)
	router.RegisterRoutes(e,
		handler.NewDepartureHandler(st.store, svc),
		handler.NewWSHandler(broker, relay, cfg.SendBuffer, cfg.JWTSecret, log),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		st.checks...)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens), cfg.JWTSecret)
	router.RegisterCustomer(e, bh, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterAdmin(e, bh, handler.NewAdminDepartureHandler(st.store), cfg.JWTSecret)

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("memory store in use; data is lost on restart")
		return &storage{
			store:  repository.NewMemoryStore(),
			users:  repository.NewMemoryUsers(),
			tokens: repository.NewMemoryTokens(),
			close:  func() {},
		}, nil
	}

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("schema_migrated")
	}
	store := repository.NewSQLStore(db)
	return &storage{
		store:  store,
		users:  repository.NewUserRepo(store.DB()),
		tokens: repository.NewTokenRepo(store.DB()),
		checks: []handler.Check{{Name: "mysql", Ping: db.PingContext}},
		close:  func() { _ = db.Close() },
	}, nil
}

func startFanout(ctx context.Context, cfg config.Config, broker *realtime.Broker, rdb *redis.Client, log *slog.Logger) realtime.Publisher {
	origin := cfg.InstanceID
	if origin == "" {
		origin = uuid.NewString()
	}
	fanout := realtime.NewRedisFanout(broker, rdb, origin, log)
	go func() {
		if err := fanout.Serve(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("fanout_exit", "error", err)
		}
	}()
	return fanout
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency_ms", v.Latency.Milliseconds(), "remote", v.RemoteIP,
			}
			if v.Error != nil {
				log.Warn("http_request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("http_request", attrs...)
			return nil
		},
	})
}
