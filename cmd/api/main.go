package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdeskpro/helpdesk-service/internal/api/http"
	"github.com/helpdeskpro/helpdesk-service/internal/api/http/handlers"
	"github.com/helpdeskpro/helpdesk-service/internal/auth"
	"github.com/helpdeskpro/helpdesk-service/internal/config"
	"github.com/helpdeskpro/helpdesk-service/internal/events"
	"github.com/helpdeskpro/helpdesk-service/internal/notify"
	"github.com/helpdeskpro/helpdesk-service/internal/observability"
	"github.com/helpdeskpro/helpdesk-service/internal/persistence"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
	"github.com/helpdeskpro/helpdesk-service/internal/service"
	"github.com/helpdeskpro/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo    repository.UserRepository
		ticketRepo  repository.TicketRepository
		commentRepo repository.CommentRepository
		historyRepo repository.TicketHistoryRepository
		resetRepo   repository.PasswordResetRepository
	)
	if pool != nil {
		userRepo = repository.NewUserRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		commentRepo = repository.NewCommentRepository(pool)
		historyRepo = repository.NewTicketHistoryRepository(pool)
		resetRepo = repository.NewPasswordResetRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		userRepo = store.Users()
		ticketRepo = store.Tickets()
		commentRepo = store.Comments()
		historyRepo = store.History()
		resetRepo = store.PasswordResets()
	}

	dispatcher := events.NewInMemoryDispatcher()
	mailer := notify.NewSMTPMailer(cfg.SMTP, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	userService := service.NewUserService(userRepo, redis.ClientHandle(), logger)

	notificationService := service.NewNotificationService(dispatcher, mailer, logger)
	notificationService.RegisterHandlers()

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Notifier:    mailer,
		StaleAfter:  cfg.Scheduler.StaleThreshold(),
	}, logger)
	escalationWorker := worker.NewEscalationWorker(escalationService, cfg.Scheduler.SweepInterval(), logger)
	go escalationWorker.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Comments:       handlers.NewCommentsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
