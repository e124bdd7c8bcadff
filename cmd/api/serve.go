package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business"
	bizrepo "github.com/ovaphlow/pitchfork/service-directory/internal/business/repo"
	"github.com/ovaphlow/pitchfork/service-directory/internal/config"
	"github.com/ovaphlow/pitchfork/service-directory/internal/graph"
	"github.com/ovaphlow/pitchfork/service-directory/internal/router"
	"github.com/ovaphlow/pitchfork/service-directory/internal/storage"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-directory/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/database"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the GraphQL API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer lg.Sync()
			return serve(cfg, lg.Sugar())
		},
	}
}

func newDecoder(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) auth.Decoder {
	if cfg.VerifyTokens {
		sugar.Infow("verifying bearer tokens", "issuer", cfg.Issuer(), "audience_check", cfg.CognitoClientID != "")
		return auth.NewOIDCDecoder(ctx, cfg.Issuer(), cfg.CognitoClientID)
	}
	sugar.Warnw("bearer token signatures are NOT verified", "app_env", cfg.AppEnv)
	return auth.UnverifiedDecoder{}
}

func serve(cfg *config.Config, sugar *zap.SugaredLogger) error {
	sugar.Infow("starting directory api", "addr", cfg.HTTPAddr, "app_env", cfg.AppEnv)
	if cfg.DevBypass {
		sugar.Warnw("local dev bypass is ON: every request runs as the ADMIN dev user")
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	var uploads graph.Uploads
	if cfg.Storage.Bucket != "" {
		client, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		uploads = client
	} else {
		sugar.Warnw("S3_BUCKET_NAME is empty; image uploads are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	users := user.NewUserService(db, userrepo.NewUserRepo(db))
	businesses := business.NewService(db, bizrepo.NewBusinessRepo(db))

	schema, err := graph.NewSchema(graph.NewResolver(businesses, users, uploads, sugar))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	builder := auth.NewBuilder(newDecoder(ctx, cfg, sugar), users, cfg.DevBypass, sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:     sugar,
		GraphQL:    builder.Middleware(graph.NewHandler(schema, sugar, graph.NewMetrics(reg))),
		Gatherer:   reg,
		Metrics:    router.NewHTTPMetrics(reg),
		CORSOrigin: cfg.CORSOrigin,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// run server in background
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.HTTPAddr)

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server failed: %w", err)
	}

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
	return nil
}
