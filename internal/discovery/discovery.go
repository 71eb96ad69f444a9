// Package discovery enumerates legacy automation servers installed on the
// local host and turns a user's pick into a connection URL.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrUnavailable      = errors.New("local server enumeration is not available")
	ErrInvalidSelection = errors.New("invalid selection")
)

// DefaultScheme is the URL scheme for discovered servers.
const DefaultScheme = "opcda"

// ManualEntry is the selection input that skips the list.
const ManualEntry = "m"

// Server is one discovered server.
type Server struct {
	ProgID string
}

// Enumerator lists server identifiers registered on host.
type Enumerator interface {
	EnumerateLocalServers(ctx context.Context, host string) ([]string, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(ctx context.Context, host string) ([]string, error)

func (f EnumeratorFunc) EnumerateLocalServers(ctx context.Context, host string) ([]string, error) {
	return f(ctx, host)
}

// Static serves a fixed list of identifiers, typically from configuration.
type Static []string

func (s Static) EnumerateLocalServers(context.Context, string) ([]string, error) {
	return append([]string(nil), s...), nil
}

// Unavailable is the enumerator used when no enumeration transport exists
// for the running platform.
func Unavailable() Enumerator {
	return EnumeratorFunc(func(context.Context, string) ([]string, error) {
		return nil, fmt.Errorf("enumerate servers: %w on %s", ErrUnavailable, runtime.GOOS)
	})
}

// Finder runs discovery and reports problems on out.
type Finder struct {
	enum     Enumerator
	out      io.Writer
	log      *zap.Logger
	hostname func() (string, error)
}

// NewFinder returns a Finder. A nil logger discards diagnostics.
func NewFinder(enum Enumerator, out io.Writer, log *zap.Logger) *Finder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Finder{enum: enum, out: out, log: log, hostname: os.Hostname}
}

// IsLocal reports whether host names this machine: "localhost" or the
// machine name, compared case-insensitively.
func (f *Finder) IsLocal(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	name, err := f.hostname()
	if err != nil {
		f.log.Debug("hostname lookup failed", zap.Error(err))
		return false
	}
	return strings.EqualFold(host, name)
}

// Discover lists servers on host sorted case-insensitively by ProgID.
// Non-local hosts and enumeration failures yield an empty list and a
// message on the Finder's output.
func (f *Finder) Discover(ctx context.Context, host string) []Server {
	if !f.IsLocal(host) {
		fmt.Fprintf(f.out, "Server discovery only works on the local machine; %q is not local.\n", host)
		return nil
	}

	ids, err := f.enum.EnumerateLocalServers(ctx, host)
	if err != nil {
		cause := innermost(err)
		f.log.Warn("server discovery failed", zap.String("host", host), zap.Error(err))
		fmt.Fprintf(f.out, "Server discovery failed: %v\n", cause)
		return nil
	}

	servers := make([]Server, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		servers = append(servers, Server{ProgID: id})
	}
	sort.SliceStable(servers, func(i, j int) bool {
		return strings.ToLower(servers[i].ProgID) < strings.ToLower(servers[j].ProgID)
	})
	f.log.Debug("servers discovered", zap.String("host", host), zap.Int("count", len(servers)))
	return servers
}

func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// Print writes servers as a 1-indexed list.
func Print(w io.Writer, servers []Server) {
	for i, s := range servers {
		fmt.Fprintf(w, "  %d. %s\n", i+1, s.ProgID)
	}
}

// Selection is the outcome of choosing from a discovered list.
type Selection struct {
	URL    string
	Manual bool
}

// URL builds the connection URL for a server on host.
func URL(scheme, host, progID string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, host, progID)
}

// Select interprets input against the 1-indexed list: a number picks a
// server, ManualEntry asks the caller for a URL. Anything else is
// ErrInvalidSelection.
func Select(servers []Server, scheme, host, input string) (Selection, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, ManualEntry) {
		return Selection{Manual: true}, nil
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, input)
	}
	if n < 1 || n > len(servers) {
		return Selection{}, fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidSelection, n, len(servers))
	}
	return Selection{URL: URL(scheme, host, servers[n-1].ProgID)}, nil
}
