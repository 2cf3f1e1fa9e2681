package main

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/config"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore/minio"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore/s3"
)

// newStore builds the backend selected by cfg.
//
//nolint:ireturn // the commands only need the Store behaviour.
func newStore(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		store, err := minio.New(minio.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Region:    cfg.Region,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		opts := []s3.Option{
			s3.WithRegion(cfg.Region),
			s3.WithMaxRetries(cfg.MaxRetries),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.Endpoint))
		}
		if cfg.ForcePathStyle {
			opts = append(opts, s3.WithForcePathStyle(true))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, s3.WithTimeout(cfg.Timeout))
		}
		if cfg.AccessKey != "" {
			opts = append(opts, s3.WithCredentials(cfg.AccessKey, cfg.SecretKey))
		}
		store, err := s3.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
