package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/observability"
	"github.com/your-org/faceauth/internal/storage"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "fdctl",
	Short: "Operator tooling for the face enrollment store",
	Long: `fdctl runs maintenance tasks against the identity database and the
enrollment photo bucket: schema migrations, identity listings, offline
duplicate audits and orphaned photo cleanup.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// Keep stdout clean for tables and JSON.
	observability.SetupLogger("warn", "text")
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*storage.PostgresStore, error) {
	db, err := storage.NewPostgresStore(ctx, cfg.Database, cfg.Face.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}
