package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/community-portal/internal/api/http"
	"github.com/spec-kit/community-portal/internal/api/http/handlers"
	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/config"
	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/mail"
	"github.com/spec-kit/community-portal/internal/observability"
	"github.com/spec-kit/community-portal/internal/persistence"
	"github.com/spec-kit/community-portal/internal/repository"
	"github.com/spec-kit/community-portal/internal/repository/memory"
	"github.com/spec-kit/community-portal/internal/service"
	"github.com/spec-kit/community-portal/internal/worker"
)

const bootstrapAdmin = "admin"

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

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memory.New()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	sessionCfg := session.Config{
		Expiration:     cfg.Session.TTL(),
		KeyLookup:      "cookie:" + cfg.Session.CookieName,
		CookieSecure:   cfg.Session.Secure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	}
	if redis != nil {
		sessionCfg.Storage = persistence.NewSessionStorage(redis.Client)
	}
	sessions := session.New(sessionCfg)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	mailer := mail.NewSender(cfg.Mail, logger.Named("mail"))
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	accounts := service.NewAccountService(*cfg, service.AccountDependencies{
		Store:   store,
		Tokens:  tokens,
		Mailer:  mailer,
		Metrics: metrics,
		Logger:  logger.Named("accounts"),
	})
	news := service.NewNewsService(service.NewsDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger.Named("news"),
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger.Named("tickets"),
	})
	admin := service.NewAdminService(store, logger.Named("admin"))
	notifications := service.NewNotificationService(dispatcher, mailer, metrics, logger.Named("notifications"), cfg.Notification)
	notifications.RegisterHandlers()

	if _, err := accounts.PromoteBootstrapAdmin(ctx, bootstrapAdmin); err != nil {
		logger.Warn("bootstrap admin promotion failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:          handlers.NewAuthHandler(accounts),
		Users:         handlers.NewUsersHandler(accounts),
		Admin:         handlers.NewAdminHandler(admin),
		News:          handlers.NewNewsHandler(news),
		Support:       handlers.NewSupportHandler(tickets),
		Pages:         handlers.NewPagesHandler(sessions, accounts, news, tickets, admin),
		Authenticator: auth.NewAuthenticator(sessions, tokens, store.Users(), auth.DefaultSessionOnlyPaths(), logger.Named("auth")),
		Policy:        auth.DefaultPolicy(),
		Metrics:       metrics,
	})

	publisher := worker.NewPostPublisher(news, cfg.Scheduler.PublishInterval(), metrics, logger.Named("scheduler"))
	go publisher.Run(ctx)

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
