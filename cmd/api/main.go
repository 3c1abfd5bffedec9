package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickar/cal/v2/us"
	"go.uber.org/zap"

	httpapi "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/scheduler"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/sla"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := observability.NewLogger(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := persistence.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := persistence.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	redisClient, err := persistence.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	ticketRepo := repository.NewTicketRepository(pool)
	policyRepo := repository.NewSlaPolicyRepository(pool)
	trackingRepo := repository.NewSlaTrackingRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	holidays := sla.NewHolidayCalendars()
	holidays.Register("us-federal",
		us.NewYear, us.MlkDay, us.MemorialDay, us.IndependenceDay,
		us.LaborDay, us.ThanksgivingDay, us.ChristmasDay,
	)
	deadlines := sla.NewBusinessHoursClock(holidays)
	resolver := sla.NewPolicyResolver(policyRepo)
	clock := domain.SystemClock{}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(logger).RegisterHandlers(dispatcher)

	slaService := service.NewSlaService(service.SlaDependencies{
		TrackingRepo: trackingRepo,
		Resolver:     resolver,
		Deadlines:    deadlines,
		Clock:        clock,
		RiskWindow:   cfg.Sla.RiskWindow(),
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Sla:        slaService,
		Dispatcher: dispatcher,
		Clock:      clock,
	})
	policyService := service.NewPolicyService(policyRepo)
	reportService := service.NewReportService(ticketRepo, trackingRepo, clock)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	authService := service.NewAuthService(agentRepo, tokens)

	sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
		Machine:    ticketService,
		Sla:        slaService,
		Tickets:    ticketRepo,
		Dispatcher: dispatcher,
		Suppressor: scheduler.NewRedisSuppressor(redisClient, cfg.Scheduler.RiskRenotifyTTL),
		Clock:      clock,
		Workers:    cfg.Scheduler.WorkerPoolSize,
		Logger:     logger,
	})
	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}
	sched := scheduler.New(sweeper, reportService, service.NewLogReporter(logger), logger, scheduler.Options{
		ViolationSweepSpec: cfg.Scheduler.ViolationSweepSpec,
		RiskSweepSpec:      cfg.Scheduler.RiskSweepSpec,
		DailyReportSpec:    cfg.Scheduler.DailyReportSpec,
		Timezone:           location,
		JobTimeout:         cfg.Scheduler.JobTimeout,
	})
	if err := sched.Start(); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	app := httpapi.NewApp(httpapi.RouterDependencies{
		Logger:  logger,
		Tokens:  tokens,
		Agents:  agentRepo,
		Tickets: handlers.NewTicketsHandler(ticketService),
		Sla:     handlers.NewSlaHandler(ticketService, slaService, policyService, sched),
		Auth:    handlers.NewAuthHandler(authService),
		Health:  handlers.NewHealthHandler(pool, redisClient),
	})

	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.App.ShutdownTimeout); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	sched.Stop()
	logger.Info("shutdown complete")
}
