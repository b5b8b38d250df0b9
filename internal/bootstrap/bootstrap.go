// Package bootstrap builds the ledger store and logger from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/clearledger/internal/config"
	"github.com/dvloznov/clearledger/internal/gcsstore"
	"github.com/dvloznov/clearledger/internal/ledger"
	"github.com/dvloznov/clearledger/internal/logger"
)

// Logger builds the process logger from cfg.
func Logger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.NewWithOptions(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// OpenStore opens the configured backend and returns a store over it. The
// returned close function releases backend resources.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ledger.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		log.Info().Str("path", cfg.Storage.Path).Msg("Using file ledger storage")
		backend := ledger.NewFileBackend(cfg.Storage.Path)
		return ledger.NewStore(backend, ledger.WithLogger(log)), func() error { return nil }, nil

	case config.BackendGCS:
		backend, err := openGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs storage: %w", err)
		}
		log.Info().Str("uri", backend.URI()).Msg("Using GCS ledger storage")
		return ledger.NewStore(backend, ledger.WithLogger(log)), backend.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openGCS(ctx context.Context, cfg config.GCSConfig) (*gcsstore.Backend, error) {
	opts := ClientOptions(cfg.CredentialsFile)
	if cfg.URI != "" {
		return gcsstore.NewFromURI(ctx, cfg.URI, opts...)
	}
	return gcsstore.New(ctx, cfg.Bucket, cfg.Object, opts...)
}

// ClientOptions returns Google API client options for an optional
// service-account credentials file.
func ClientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}
