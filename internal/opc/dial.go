package opc

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Driver opens a Client for a parsed connection URL.
type Driver func(ctx context.Context, st ServerType, u *url.URL, log *zap.Logger) (Client, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{
		"sim":  dialSim,
		"file": dialFile,
	}
)

// Register installs a driver for a URL scheme, replacing any existing one.
func Register(scheme string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[strings.ToLower(scheme)] = d
}

// Dial connects to rawURL. A bare path to a .yaml/.yml file is treated
// as a file:// URL.
func Dial(ctx context.Context, st ServerType, rawURL string, log *zap.Logger) (Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if ext := strings.ToLower(filepath.Ext(rawURL)); !strings.Contains(rawURL, "://") && (ext == ".yaml" || ext == ".yml") {
		rawURL = "file://" + filepath.ToSlash(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid connection URL %q: %w", rawURL, err)
	}

	driversMu.RLock()
	d, ok := drivers[strings.ToLower(u.Scheme)]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (scheme %q)", ErrNoDriver, rawURL, u.Scheme)
	}

	log.Debug("dialing server", zap.String("type", string(st)), zap.String("url", rawURL))
	return d(ctx, st, u, log)
}

func dialSim(_ context.Context, _ ServerType, _ *url.URL, log *zap.Logger) (Client, error) {
	space, err := DemoSpace()
	if err != nil {
		return nil, err
	}
	return NewMemory(space, log)
}

func dialFile(_ context.Context, _ ServerType, u *url.URL, log *zap.Logger) (Client, error) {
	path := u.Host + u.Path
	if path == "" {
		path = u.Opaque
	}
	space, err := LoadSpace(filepath.FromSlash(path))
	if err != nil {
		return nil, err
	}
	return NewMemory(space, log)
}
