// Package remotefs defines the abstraction the cache fronts: a byte-range
// addressable remote source, plus a registry that lets a cache
// implementation (such as the root "smmap" package) advertise itself under
// a name so callers can select a caching strategy by string, the way the
// teacher's pkg/registry lets a share pick a named store.
package remotefs

import (
	"context"
	"fmt"
	"sync"
)

// RangeFetcher retrieves the authoritative bytes for the half-open byte
// range [start, end) from a remote object.
type RangeFetcher interface {
	FetchRange(ctx context.Context, start, end int64) ([]byte, error)
}

// RemoteFile is an open handle on a remote object: it knows its own size and
// can be range-fetched until closed.
type RemoteFile interface {
	RangeFetcher
	Size() int64
	Close() error
}

// RemoteFS opens remote objects by path. Implementations: pkg/remotefs/s3fs,
// pkg/remotefs/httpfs, pkg/remotefs/badgerfs.
type RemoteFS interface {
	Open(ctx context.Context, path string) (RemoteFile, error)
}

// Cache is the minimal surface a registered cache-class must provide so
// pkg/fetch can drive it without importing its concrete package.
type Cache interface {
	Fetch(start, end uint64) ([]byte, error)
	FetchContext(ctx context.Context, start, end uint64) ([]byte, error)
	Close() error
}

// CacheOptions parameterizes a named cache-class's construction. Not every
// field is meaningful to every cache-class; File is always the remote
// object the cache will serve reads from.
type CacheOptions struct {
	BlockSize     uint64
	Size          uint64
	Location      string
	IndexLocation string
	File          RemoteFile
}

// CacheFactory constructs a Cache for a registered cache-class.
type CacheFactory func(opts CacheOptions) (Cache, error)

var (
	mu     sync.RWMutex
	caches = make(map[string]CacheFactory)
)

// RegisterCache adds a named cache-class to the process-wide registry. It
// panics on a duplicate name, the same discipline the teacher's
// pkg/registry applies to duplicate store names, since a second
// registration under the same name is always a programming error rather
// than something callers should recover from.
func RegisterCache(name string, factory CacheFactory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := caches[name]; exists {
		panic(fmt.Sprintf("remotefs: cache class %q already registered", name))
	}
	caches[name] = factory
}

// OpenCache constructs a Cache via the named cache-class's factory.
func OpenCache(name string, opts CacheOptions) (Cache, error) {
	mu.RLock()
	factory, ok := caches[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("remotefs: unknown cache class %q", name)
	}
	return factory(opts)
}
