// Command server runs the lead intake and qualification service.
//
// Wiring only: config, stores, services, router, lifecycle. Business logic
// lives in the internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"leadgate/internal/clarify/generator"
	clarifymetrics "leadgate/internal/clarify/metrics"
	clarifyservice "leadgate/internal/clarify/service"
	clarifystore "leadgate/internal/clarify/store"
	"leadgate/internal/gate"
	"leadgate/internal/intake/handler"
	intakemetrics "leadgate/internal/intake/metrics"
	"leadgate/internal/intake/models"
	intakeservice "leadgate/internal/intake/service"
	intakestore "leadgate/internal/intake/store"
	"leadgate/internal/platform/config"
	"leadgate/internal/platform/httpserver"
	"leadgate/internal/platform/logger"
	"leadgate/internal/platform/postgres"
	platformredis "leadgate/internal/platform/redis"
	"leadgate/internal/ratelimit"
	httptransport "leadgate/internal/transport/http"
)

// recorderFunc lets the clarification service call back into the intake
// service, which is constructed after it.
type recorderFunc func(ctx context.Context, inquiryID string, rec models.IntakeRecord, verdict gate.Verdict) error

func (f recorderFunc) RecordClarification(ctx context.Context, inquiryID string, rec models.IntakeRecord, verdict gate.Verdict) error {
	return f(ctx, inquiryID, rec, verdict)
}

// limiterSweeper is the reap surface of the rate limiter.
type limiterSweeper interface {
	Sweep()
}

// sessionSweeper is the reap surface of the in-memory session store.
type sessionSweeper interface {
	Sweep(now time.Time) int
}

// runSweeper periodically reaps expired rate-limit windows and, when sessions
// is non-nil, expired clarification sessions. Returns nil once ctx is done.
func runSweeper(ctx context.Context, interval time.Duration, limiter limiterSweeper, sessions sessionSweeper, log *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			limiter.Sweep()
			if sessions != nil {
				if removed := sessions.Sweep(time.Now()); removed > 0 {
					log.Info("swept expired clarification sessions", "removed", removed)
				}
			}
		}
	}
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthChecker{}

	// Inquiry store: Postgres when configured, in-memory otherwise.
	var inquiries intakestore.Store = intakestore.NewMemory()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		inquiries = intakestore.NewPostgres(db)
		checks["postgres"] = httptransport.HealthCheckFunc(db.PingContext)
		log.Info("using postgres inquiry store")
	} else {
		log.Info("DATABASE_URL not set, using in-memory inquiry store")
	}

	// Session store: Redis when configured, in-memory otherwise. The memory
	// store needs a periodic sweep; Redis expires keys natively.
	var sessions clarifystore.Store
	var memorySessions *clarifystore.MemoryStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = clarifystore.NewRedis(redisClient.Client)
		checks["redis"] = httptransport.HealthCheckFunc(redisClient.Health)
		log.Info("using redis session store")
	} else {
		memorySessions = clarifystore.NewMemory()
		sessions = memorySessions
		log.Info("REDIS_URL not set, using in-memory session store")
	}

	engine := gate.NewEngine(
		gate.WithMinContextLength(cfg.Gate.MinContextLength),
		gate.WithPersonalEmailDomains(cfg.Gate.PersonalEmailDomains),
	)
	questions := generator.NewFallback(cfg.Gate.MinContextLength)
	limiter := ratelimit.New(cfg.RateLimit)

	// The intake service records clarified verdicts, so it is both the
	// clarification starter's caller and its recorder. Wire the cycle through
	// the narrow interfaces.
	var intake *intakeservice.Service
	clarify := clarifyservice.New(
		sessions,
		questions,
		engine,
		recorderFunc(func(ctx context.Context, inquiryID string, rec models.IntakeRecord, verdict gate.Verdict) error {
			return intake.RecordClarification(ctx, inquiryID, rec, verdict)
		}),
		clarifyservice.Config{
			MaxTurns:         cfg.Clarify.MaxTurns,
			SessionTTL:       cfg.Clarify.SessionTTL,
			GeneratorTimeout: cfg.Clarify.GeneratorTimeout,
			MinContextLength: cfg.Gate.MinContextLength,
		},
		log,
		clarifyservice.WithMetrics(clarifymetrics.New()),
	)
	intake = intakeservice.New(
		inquiries,
		engine,
		clarify,
		limiter,
		intakeservice.Config{MinContextLength: cfg.Gate.MinContextLength},
		log,
		intakeservice.WithMetrics(intakemetrics.New()),
	)

	h := handler.New(intake, clarify, log)
	router := httptransport.NewRouter(h, checks)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting leadgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The limiter always needs reaping; the session sweep applies only when
	// sessions are kept in memory (Redis expires its keys natively).
	var sessionSweep sessionSweeper
	if memorySessions != nil {
		sessionSweep = memorySessions
	}
	g.Go(func() error {
		return runSweeper(gctx, cfg.Clarify.SweepInterval, limiter, sessionSweep, log)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("leadgate stopped")
}
