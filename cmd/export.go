package main

import (
	"context"

	"go.uber.org/zap"

	"osint/internal/config"
	"osint/internal/export"
	"osint/pkg/logger"
)

// newArtifactSink returns an S3 sink when a bucket is configured and a local
// directory sink otherwise.
func newArtifactSink(ctx context.Context, cfg *config.Config) export.ArtifactSink {
	s3cfg := cfg.Export.S3
	if s3cfg.Bucket == "" {
		return export.LocalSink{Dir: cfg.Export.Dir}
	}

	client, err := export.NewS3Client(ctx, export.S3Options{
		Bucket:    s3cfg.Bucket,
		Prefix:    s3cfg.Prefix,
		Region:    s3cfg.Region,
		Endpoint:  s3cfg.Endpoint,
		AccessKey: s3cfg.AccessKey,
		SecretKey: s3cfg.SecretKey,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create s3 client", zap.Error(err))
	}
	logger.Info(ctx, "exports are stored in s3", zap.String("bucket", s3cfg.Bucket))

	return export.NewS3Sink(client, s3cfg.Bucket, s3cfg.Prefix)
}

// newGraphStore connects to the graph database when it is enabled. The
// returned cleanup is never nil.
func newGraphStore(ctx context.Context, cfg *config.Config) (*export.GraphStore, func()) {
	if !cfg.GraphDB.Enabled {
		return nil, func() {}
	}

	exec, err := export.NewNeo4jExecutor(ctx, cfg.GraphDB.URI, cfg.GraphDB.Username, cfg.GraphDB.Password)
	if err != nil {
		logger.Fatal(ctx, "could not connect to graph database", zap.Error(err))
	}
	store := export.NewGraphStore(exec)
	store.EnsureIndexes(ctx)

	return store, func() {
		logger.Info(ctx, "closing graph database driver...")
		if err := store.Close(ctx); err != nil {
			logger.Warn(ctx, "could not close graph database driver", zap.Error(err))
		}
	}
}
