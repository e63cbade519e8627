// Package publish copies rendered tables to a shared location after a run.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/arkilian/trialstats/internal/config"
)

// ErrUploadFailed wraps every failed upload.
var ErrUploadFailed = errors.New("upload failed")

// Sink receives rendered table files.
type Sink interface {
	// Upload copies the file at localPath to objectPath in the sink.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Exists reports whether objectPath is present in the sink.
	Exists(ctx context.Context, objectPath string) (bool, error)
}

// New builds the sink selected by cfg. It returns nil for type none.
func New(ctx context.Context, cfg config.PublishConfig) (Sink, error) {
	switch cfg.Type {
	case "", config.PublishNone:
		return nil, nil
	case config.PublishLocal:
		return NewLocalSink(cfg.Path)
	case config.PublishS3:
		return NewS3Sink(ctx, cfg.S3.Bucket, S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("publish: unknown sink type %q", cfg.Type)
	}
}

// ObjectName returns the object path a rendered file is published under.
func ObjectName(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}
