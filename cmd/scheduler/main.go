package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	bizrepo "github.com/ovaphlow/pitchfork/service-directory/internal/business/repo"
	"github.com/ovaphlow/pitchfork/service-directory/internal/config"
	"github.com/ovaphlow/pitchfork/service-directory/internal/invoice"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/database"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	cmd := &cobra.Command{
		Use:           "directory-scheduler",
		Short:         "Run the periodic invoice job",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().Bool("once", false, "Run the job once and exit.")
	config.RegisterFlags(cmd.Flags())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting directory scheduler", "schedule", cfg.InvoiceSchedule)

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := invoice.NewJob(bizrepo.NewBusinessRepo(db), sugar)
	if once, _ := cmd.Flags().GetBool("once"); once {
		job.Run(ctx)
		return nil
	}

	sched, err := invoice.NewScheduler(ctx, cfg.InvoiceSchedule, job, sugar)
	if err != nil {
		return err
	}
	sched.Start()
	sugar.Info("scheduler is running; press Ctrl+C to stop")

	<-ctx.Done()

	sugar.Info("shutting down")
	sched.Stop()

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// ping db once more
	if err := db.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
	return nil
}
