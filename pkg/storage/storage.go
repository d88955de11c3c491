// Package storage writes export archives to a named disk: "local" for the
// filesystem or "s3" for any S3-compatible bucket.
//
//	disks, _ := storage.Connect(ctx)
//	disks.Default().Put(ctx, "exports/orders/2026-10-15.xlsx", r)
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/logger"
)

var ErrNotFound = errors.New("storage: file not found")

// Disk is implemented by every storage driver.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// Files lists the paths under prefix, sorted.
	Files(ctx context.Context, prefix string) ([]string, error)
	URL(path string) string
}

type Manager struct {
	mu          sync.RWMutex
	disks       map[string]Disk
	defaultName string
}

func NewManager(defaultName string) *Manager {
	return &Manager{disks: make(map[string]Disk), defaultName: defaultName}
}

// Connect boots the local disk and, when S3_BUCKET is set, the s3 disk.
// An S3 misconfiguration is logged and the disk left out.
func Connect(ctx context.Context) (*Manager, error) {
	m := NewManager(config.StorageDefault())
	local, err := NewLocal(config.StorageLocalRoot(), config.StorageURL())
	if err != nil {
		return nil, err
	}
	m.Register("local", local)

	if config.StorageS3Bucket() != "" {
		d, err := NewS3(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			m.Register("s3", d)
		}
	}
	return m, nil
}

func (m *Manager) Register(name string, d Disk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disks[name] = d
}

func (m *Manager) Disk(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the configured default disk, or local when that disk
// failed to boot.
func (m *Manager) Default() Disk {
	if d, err := m.Disk(m.defaultName); err == nil {
		return d
	}
	d, _ := m.Disk("local")
	return d
}

func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.disks))
	for name := range m.disks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
