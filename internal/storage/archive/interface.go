// Package archive keeps simulation reports (backtest, optimization and risk
// results) as JSON documents on local disk or in an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no stored object
var ErrNotFound = errors.New("archive: object not found")

// Storage is a flat key/value blob store. Keys use forward slashes.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Backend types accepted by Open
const (
	TypeLocalFS = "localfs"
	TypeS3      = "s3"
)

// Config selects and configures a backend
type Config struct {
	Type string   `mapstructure:"type"`
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

// Open builds the configured backend
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocalFS, "":
		return NewLocalFS(cfg.Path)
	case TypeS3:
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
