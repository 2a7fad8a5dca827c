// Command api serves the slot booking HTTP API and runs its background workers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"slotbooking/config"
	"slotbooking/internal/adapters/auth"
	"slotbooking/internal/adapters/badge"
	"slotbooking/internal/adapters/broker"
	"slotbooking/internal/adapters/cache"
	"slotbooking/internal/adapters/email"
	"slotbooking/internal/adapters/events"
	"slotbooking/internal/adapters/sessionize"
	deliveryhttp "slotbooking/internal/delivery/http"
	"slotbooking/internal/delivery/http/controllers"
	"slotbooking/internal/delivery/http/middleware"
	"slotbooking/internal/domain"
	"slotbooking/internal/repository/memory"
	"slotbooking/internal/repository/postgres"
	"slotbooking/internal/services"
)

// @title Slot Booking API
// @version 1.0
// @description Seat reservations for conference sessions: registration, cancellation, check-in and live availability.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

const eventBuffer = 1024

// storage groups the repositories behind one backend.
type storage struct {
	store        domain.BookingStore
	slots        domain.SlotRepository
	reservations domain.ReservationRepository
	users        domain.UserRepository
	health       deliveryhttp.HealthCheck
	close        func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("close storage", "err", err)
		}
	}()

	var (
		scheduleCache domain.ScheduleCache
		limiter       middleware.RateLimiter
	)
	if rdb := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		defer rdb.Close()
		scheduleCache = cache.NewScheduleCache(rdb, "slotbooking", cfg.Booking.ScheduleTTL)
		if cfg.RateLimit.Enabled {
			limiter = cache.NewTokenBucketLimiter(rdb, cfg.RateLimit.Prefix, cfg.RateLimit.Capacity, cfg.RateLimit.RefillInterval)
		}
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	} else {
		logger.Warn("redis unavailable, schedule cache and rate limiting disabled", "addr", cfg.Redis.Addr)
	}

	g, gctx := errgroup.WithContext(ctx)

	sinks, err := buildSinks(cfg, st.users, logger)
	if err != nil {
		return err
	}
	if cfg.RabbitMQURL != "" {
		pub, err := broker.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("rabbitmq publisher: %w", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		consumer := broker.NewAuditConsumer(cfg.RabbitMQURL, logger)
		g.Go(func() error { return consumer.Run(gctx) })
	} else {
		sinks = append(sinks, events.LogSink{Logger: logger})
	}
	dispatcher := events.NewDispatcher(eventBuffer, logger, sinks...)

	var verifier domain.BadgeVerifier = badge.NoopVerifier{}
	if cfg.BadgeVerifierURL != "" {
		verifier = badge.NewHTTPVerifier(&http.Client{Timeout: 3 * time.Second}, cfg.BadgeVerifierURL)
	}

	bookingSvc := services.NewBookingService(st.store, st.reservations, verifier, dispatcher, scheduleCache,
		time.Now, logger, cfg.Booking.Timeout, cfg.Booking.CheckInGrace, cfg.Booking.RetryBackoff)
	availabilitySvc := services.NewAvailabilityService(st.slots, st.reservations, scheduleCache,
		time.Now, logger, cfg.Booking.AlmostFullRatio, cfg.Booking.Timeout)
	fetcher := sessionize.NewHTTPFetcher(&http.Client{Timeout: 15 * time.Second}, sessionize.DefaultBaseURL)
	catalogSvc := services.NewCatalogService(st.slots, fetcher, scheduleCache, logger, cfg.DefaultSlotCapacity, 30*time.Second)
	sweeper := services.NewNoShowSweeper(st.reservations, st.slots, dispatcher, scheduleCache, time.Now, logger, 30*time.Second)

	router := deliveryhttp.NewRouter(deliveryhttp.RouterDeps{
		Logger:       logger,
		Verifier:     auth.NewJWT(cfg.JWTSecret),
		Limiter:      limiter,
		Booking:      controllers.NewBookingController(logger, bookingSvc),
		Availability: controllers.NewAvailabilityController(logger, availabilitySvc),
		Catalog:      controllers.NewCatalogController(logger, catalogSvc),
		Health:       st.health,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, router)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	logger.Info("listening", "addr", srv.Addr, "env", cfg.Environment, "storage", cfg.Storage)

	g.Go(func() error { return sweeper.Run(gctx, cfg.NoShowSweepSchedule) })
	g.Go(func() error { return serveAndDrain(gctx, srv, ln, dispatcher, logger, 10*time.Second) })

	err = g.Wait()
	if n := dispatcher.Dropped(); n > 0 {
		logger.Warn("reservation events dropped", "count", n)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveAndDrain serves HTTP on ln and runs the event dispatcher until ctx is done. The dispatcher
// is stopped only after Shutdown returns, so events published by requests still in flight are
// queued and delivered rather than dropped.
func serveAndDrain(ctx context.Context, srv *http.Server, ln net.Listener, dispatcher *events.Dispatcher, logger *slog.Logger, grace time.Duration) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(dispatchCtx) })
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})
	return g.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.Storage == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		s := memory.NewStore()
		return &storage{
			store:        s,
			slots:        s,
			reservations: s,
			users:        s,
			close:        func() error { return nil },
		}, nil
	}
	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return &storage{
		store:        postgres.NewBookingStore(db, cfg.Booking.LockTimeout),
		slots:        postgres.NewSlotRepository(db),
		reservations: postgres.NewReservationRepository(db),
		users:        postgres.NewUserRepository(db),
		health:       db.PingContext,
		close:        db.Close,
	}, nil
}

// buildSinks returns the e-mail sink when a real mail provider is configured.
func buildSinks(cfg *config.Config, users domain.UserRepository, logger *slog.Logger) ([]domain.EventSink, error) {
	if cfg.Email.Provider == "" || cfg.Email.Provider == "noop" {
		return nil, nil
	}
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("email templates: %w", err)
	}
	return []domain.EventSink{services.NewEmailNotifier(users, mailer, renderer, logger)}, nil
}
