package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/handler"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/otp"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/articles-feed-api/shared/auth"
	"github.com/vasapolrittideah/articles-feed-api/shared/database"
	"github.com/vasapolrittideah/articles-feed-api/shared/discovery"
	"github.com/vasapolrittideah/articles-feed-api/shared/logger"
	"github.com/vasapolrittideah/articles-feed-api/shared/mailer"
	"github.com/vasapolrittideah/articles-feed-api/shared/mailqueue"
	"github.com/vasapolrittideah/articles-feed-api/shared/middleware"
	"github.com/vasapolrittideah/articles-feed-api/shared/security"
	"github.com/vasapolrittideah/articles-feed-api/shared/utilities"
	"github.com/vasapolrittideah/articles-feed-api/shared/validation"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("account service stopped")
	}
}

func run(ctx context.Context, cfg *config.AccountServiceConfig, log *zerolog.Logger) error {
	mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.OperationTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect mongo")
		}
	}()

	userRepo := repository.NewUserMongoRepository(
		ctx,
		log,
		mongoClient.Database(cfg.Mongo.Database),
		cfg.Mongo.OperationTimeout,
		cfg.Mongo.Transactions,
	)

	otpEngine := otp.NewEngine(otp.Config{
		VerificationTTL:  cfg.OTP.VerificationTTL,
		PasswordResetTTL: cfg.OTP.PasswordResetTTL,
	})
	hasher := security.NewPasswordHasher()
	tokens := auth.NewJWTAuthenticator(auth.TokenConfig{
		Secret:    cfg.Token.Secret,
		Issuer:    cfg.Token.Issuer,
		ExpiresIn: cfg.Token.ExpiresIn,
	})

	g, gctx := errgroup.WithContext(ctx)

	smtp := mailer.NewMailer(cfg.SMTP)
	var notifier usecase.Notifier
	var asyncNotifier *mailer.AsyncNotifier
	if cfg.Mail.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Mail.RedisAddr,
			Password: cfg.Mail.RedisPassword,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		queue := mailqueue.NewQueue(rdb, cfg.Mail.QueueKey)
		worker := mailqueue.NewWorker(queue, smtp, log, cfg.Mail.SendTimeout)
		g.Go(func() error { return worker.Run(gctx) })
		notifier = queue
	} else {
		asyncNotifier = mailer.NewAsyncNotifier(smtp, log, cfg.Mail.Concurrency, cfg.Mail.BufferSize, cfg.Mail.SendTimeout)
		notifier = asyncNotifier
	}

	accountUsecase := usecase.NewAccountUsecase(userRepo, otpEngine, hasher, tokens, notifier, cfg, log)
	followUsecase := usecase.NewFollowUsecase(userRepo, log)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userRepo, otpEngine, hasher, tokens, notifier, cfg, log)

	validator, err := validation.New()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	router := handler.NewRouter(
		accountUsecase,
		followUsecase,
		passwordResetUsecase,
		validator,
		middleware.Authenticate(tokens, log),
		log,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer, cfg.ServiceName)
	healthListener, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCHealthAddr, err)
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", healthListener.Addr().String()).Msg("grpc health server listening")
		if err := grpcServer.Serve(healthListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc health: %w", err)
		}
		return nil
	})

	if cfg.FollowReconcileInterval > 0 {
		g.Go(func() error {
			reconcileFollowGraph(gctx, followUsecase, cfg.FollowReconcileInterval, log)
			return nil
		})
	}

	if cfg.Discovery.ConsulAddr != "" {
		deregister, err := registerWithConsul(cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to register with consul")
		} else {
			defer deregister()
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		utilities.MarkNotServing(healthServer)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down http server")
		}
		grpcServer.GracefulStop()

		if asyncNotifier != nil {
			if err := asyncNotifier.Close(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("pending emails dropped on shutdown")
			}
		}
		return nil
	})

	return g.Wait()
}

func reconcileFollowGraph(
	ctx context.Context,
	followUsecase usecase.FollowUsecase,
	interval time.Duration,
	log *zerolog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := followUsecase.ReconcileFollowGraph(ctx)
			if err != nil {
				log.Error().Err(err).Msg("follow graph reconciliation failed")
				continue
			}
			log.Info().Int("repaired", repaired).Msg("follow graph reconciled")
		}
	}
}

func registerWithConsul(cfg *config.AccountServiceConfig, log *zerolog.Logger) (func(), error) {
	_, portStr, err := net.SplitHostPort(cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_ADDR: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_ADDR port: %w", err)
	}

	registrar, err := discovery.NewConsulRegistrar(cfg.Discovery.ConsulAddr, log)
	if err != nil {
		return nil, err
	}

	if err := registrar.Register(discovery.Registration{
		ID:             cfg.ServiceID,
		Name:           cfg.ServiceName,
		Host:           cfg.Discovery.AdvertiseHost,
		HTTPPort:       port,
		GRPCHealthAddr: cfg.GRPCHealthAddr,
		Tags:           []string{"http", "accounts"},
	}); err != nil {
		return nil, err
	}

	return func() {
		if err := registrar.Deregister(cfg.ServiceID); err != nil {
			log.Error().Err(err).Msg("failed to deregister from consul")
		}
	}, nil
}
