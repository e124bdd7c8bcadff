package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-directory/internal/config"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/utilities"
)

func main() {
	// a missing .env is fine; real env and flag defaults still apply
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "directory-api",
		Short:         "Business directory GraphQL API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// setup loads configuration and builds the logger shared by all
// subcommands. Only serve needs the full validation.
func setup(cmd *cobra.Command, validate bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, lg, nil
}
