// Package snapshot defines the archive interface for extraction snapshots.
//
// After a successful graph store, the introspection service uploads the
// marshalled metadata snapshot as a JSON document. The archive is a
// convenience record, not the system of record — upload failures are logged
// and never fail the run.
package snapshot

import (
	"context"
	"fmt"
	"time"
)

// Store is the interface all snapshot archive providers implement.
type Store interface {
	// Ping verifies the archive backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Put uploads one JSON document under key.
	Put(ctx context.Context, key string, data []byte) error
}

// Config holds the settings for an object-storage backed archive.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// Key returns the archive key for one run: "<datasource>/<timestamp>.json".
func Key(datasource string, extractedAt time.Time) string {
	return fmt.Sprintf("%s/%s.json", datasource, extractedAt.UTC().Format(time.RFC3339))
}
