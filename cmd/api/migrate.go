package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	bizrepo "github.com/ovaphlow/pitchfork/service-directory/internal/business/repo"
	userrepo "github.com/ovaphlow/pitchfork/service-directory/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, lg, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer lg.Sync()
			sugar := lg.Sugar()

			db, err := database.Connect(database.ConfigFromEnv())
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			// users first: businesses reference them
			if err := userrepo.NewUserRepo(db).EnsureTable(ctx); err != nil {
				return err
			}
			if err := bizrepo.NewBusinessRepo(db).EnsureTable(ctx); err != nil {
				return err
			}
			sugar.Info("schema is up to date")
			return nil
		},
	}
}
