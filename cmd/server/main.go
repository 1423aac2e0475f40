// Command server runs the StepOut HTTP API and the chat archival job.
//
// @title StepOut API
// @version 1.0
// @description Events, feed, RSVPs, friends and event chats.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stepout/config"
	_ "stepout/docs"
	"stepout/internal/adapters/auth"
	"stepout/internal/adapters/email"
	"stepout/internal/adapters/natspub"
	"stepout/internal/adapters/redislock"
	httpdelivery "stepout/internal/delivery/http"
	"stepout/internal/delivery/http/controllers"
	"stepout/internal/domain"
	"stepout/internal/repository/memory"
	"stepout/internal/repository/postgres"
	"stepout/internal/scheduler"
	"stepout/internal/services"

	_ "github.com/lib/pq"
)

// repositories is the storage backend chosen by STORAGE_DRIVER.
type repositories struct {
	events  domain.EventRepository
	members domain.MemberRepository
	chats   domain.ChatRepository
	friends domain.FriendRepository
	invites domain.FriendInviteRepository
	users   domain.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]controllers.Pinger{}

	var repos repositories
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.New()
		repos = repositories{store.Events(), store.Members(), store.Chats(), store.Friends(), store.Invites(), store.Users()}
	default:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		checks["postgres"] = db
		repos = repositories{
			events:  postgres.NewEventRepository(db),
			members: postgres.NewMemberRepository(db),
			chats:   postgres.NewChatRepository(db),
			friends: postgres.NewFriendRepository(db),
			invites: postgres.NewFriendInviteRepository(db),
			users:   postgres.NewUserRepository(db),
		}
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	var publisher domain.ChatEventPublisher
	if cfg.NATSURL != "" {
		p, err := natspub.Connect(natspub.Config{URL: cfg.NATSURL, Name: "stepout-api"}, logger)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		checks["nats"] = p
		logger.Info("connected to nats", "url", cfg.NATSURL)
	}

	var locker scheduler.Locker
	if cfg.RedisURL != "" {
		l, rdb, err := redislock.Connect(cfg.RedisURL, "stepout:lock:")
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = l
		checks["redis"] = controllers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logger.Info("using redis for job locks")
	}

	clock := domain.SystemClock{}
	timeout := cfg.RequestTimeout
	resolver := services.NewEventIdentityResolver(repos.events)
	chatService := services.NewChatService(repos.chats, repos.events, repos.users, publisher, clock, logger, timeout)
	eventService := services.NewEventService(repos.events, repos.members, repos.users, resolver, clock, logger, timeout)
	membershipService := services.NewMembershipService(repos.members, repos.chats, repos.users, resolver, chatService, clock, logger, timeout)
	feedService := services.NewFeedService(repos.events, repos.members, repos.friends, repos.users, logger, timeout)
	friendService := services.NewFriendService(repos.friends, repos.invites, repos.users, emailService, clock, logger, timeout)
	archivalService := services.NewArchivalService(repos.events, repos.chats, clock, cfg.ArchiveGrace, logger)

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET is empty; tokens are verified with an empty key")
	}
	mux := httpdelivery.NewRouter(httpdelivery.Controllers{
		Events:  controllers.NewEventController(logger, eventService, membershipService),
		Feed:    controllers.NewFeedController(logger, feedService),
		Friends: controllers.NewFriendController(logger, friendService),
		Chats:   controllers.NewChatController(logger, chatService),
		Health:  controllers.NewHealthController(logger, checks),
	}, auth.NewJWTVerifier(secret), logger)

	sweep := scheduler.NewRecurring("archival-sweep", cfg.ArchiveInterval, archivalService.Sweep, locker, logger)
	if err := sweep.Start(ctx); err != nil {
		return err
	}
	defer sweep.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpdelivery.Wrap(mux, cfg.CORSAllowedOrigins, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openPostgres(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
