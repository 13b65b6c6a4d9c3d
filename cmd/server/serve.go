package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/cache"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/config"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/db"
	forumgrpc "github.com/madhav-v/Pseudonymous-College-Platform/internal/grpc"
	internalhttp "github.com/madhav-v/Pseudonymous-College-Platform/internal/http"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/jobs"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/logging"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/mail"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/repository"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
			return serve(c.Context(), cfg, log)
		},
	}
}

func migrate(ctx context.Context, cfg config.Config, log logrus.FieldLogger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()
	return db.Migrate(ctx, pool, log)
}

func serve(ctx context.Context, cfg config.Config, log logrus.FieldLogger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, log); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	store := repository.NewStore(pool)

	var resetTokens internalhttp.ResetTokenLedger
	if cfg.RedisAddr != "" {
		redisClient, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Warn("redis close error")
			}
		}()
		resetTokens = cache.NewResetTokens(redisClient)
	} else {
		log.Warn("REDIS_ADDR not set: reset tokens stay valid until they expire")
	}

	uploader, err := media.NewS3Uploader(ctx, cfg.Media)
	if err != nil {
		return err
	}
	mailer := mail.New(cfg.SMTP, log)

	server := internalhttp.NewServer(cfg, store, uploader, mailer, resetTokens, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := forumgrpc.NewHealthServer(store, cfg.HealthProbeInterval, log)
	healthServer.Register(grpcServer)
	healthServer.Start(ctx)

	jobs.StartRefreshSweepJob(ctx, cfg.RefreshSweepEvery, store, log)

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen error: %w", err)
	}

	errs := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server error: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
		if err := grpcServer.Serve(listener); err != nil {
			errs <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	grpcServer.GracefulStop()
	log.Info("stopped")
	return serveErr
}
