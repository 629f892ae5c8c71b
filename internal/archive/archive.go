// Package archive copies run records to durable storage outside the local
// database. Two drivers exist: a directory on the local filesystem and an
// S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/abhisek/vlab/internal/record"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("archive: object not found")

// Driver names a Store implementation.
type Driver string

const (
	DriverFS Driver = "fs"
	DriverS3 Driver = "s3"
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store holds opaque record bodies under slash-separated keys.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns objects under prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver Driver   `yaml:"driver"`
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

// Open builds the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFS, "":
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

// Key returns the object key of a record.
func Key(kind record.Kind, id string) string {
	return path.Join(string(kind), id+".json")
}

// cleanKey rejects keys that could escape a store's root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := path.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}
