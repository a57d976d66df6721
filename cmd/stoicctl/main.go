// Package main is the operator CLI for the reflection service. Commands
// talk to the same document store the service uses, so they work against
// whatever profile APP_ENVIRONMENT selects.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/storage"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// Version is the semantic version, injected via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "stoicctl",
		Short:        "Operate the daily stoic reflection service",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(datasetCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(subscribersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliEnv carries the configured dependencies commands share.
type cliEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	store  ports.BlobStore
}

// newCLIEnv loads the profile configuration and connects the document
// store. Logs go to stderr as text so stdout stays reserved for command
// output.
func newCLIEnv(ctx context.Context) (*cliEnv, error) {
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  "text",
		Service: "stoicctl",
		Version: Version,
	}, os.Stderr)
	logging.SetDefault(logger)

	store, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	return &cliEnv{cfg: cfg, logger: logger, store: store}, nil
}

// newBlobStore builds the configured document store. The memory driver
// starts empty each run; when a file exists at the dataset key path it is
// loaded so dataset commands can work on a local copy.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.BlobStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
		}, logger)

	case "memory":
		store := storage.NewMemoryStore()

		if data, err := os.ReadFile(cfg.Storage.DatasetKey); err == nil {
			store.Seed(cfg.Storage.DatasetKey, data)
		}

		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
