// Package smmap implements a shared, persistent, block-granular read cache
// for byte-addressable remote sources (object storage, HTTP range servers,
// network filesystems). Multiple cooperating processes open the same cache
// location and transparently share whichever blocks any of them has already
// fetched: a data file and a validity-bitmap sidecar are both memory-mapped
// and kept consistent across processes with advisory file locks, so a
// block fetched by one process is immediately visible to every other
// process mapping the same files, without a round trip through any of
// them.
package smmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/smmap/internal/bitindex"
	"github.com/marmos91/smmap/internal/cacheerr"
	"github.com/marmos91/smmap/internal/coordinator"
	"github.com/marmos91/smmap/internal/metrics"
	"github.com/marmos91/smmap/internal/region"
	"github.com/marmos91/smmap/internal/resolver"
	"github.com/marmos91/smmap/pkg/remotefs"
)

// Options configures a new Cache.
type Options struct {
	// BlockSize is the granularity at which validity is tracked and
	// upstream fetches are aligned. Must be > 0.
	BlockSize uint64

	// Size is the fixed, total addressable size of the cache in bytes.
	Size uint64

	// Location is the path to the memory-mapped data file.
	Location string

	// IndexLocation is the path to the memory-mapped validity bitmap. Its
	// lock file is derived as IndexLocation + ".lock".
	IndexLocation string

	// Fetcher is the synchronous upstream range fetcher used by Fetch.
	// Fetch never falls back to AsyncFetcher: without Fetcher, a Fetch that
	// needs to populate a missing block fails with ErrFetcherRequired.
	Fetcher resolver.Fetcher

	// AsyncFetcher is the cooperative-async upstream range fetcher used
	// by FetchContext, which likewise never falls back to Fetcher.
	AsyncFetcher resolver.AsyncFetcher

	// Metrics is nil-safe; pass nil to disable observability entirely.
	Metrics metrics.CacheMetrics
}

// Snapshot is an opaque, serializable description of an open Cache's
// on-disk layout, sufficient to reopen an equivalent Cache in another
// process via Open. It intentionally omits Fetcher/AsyncFetcher: Go
// closures cannot be serialized, so the caller must re-supply them at Open
// time.
type Snapshot struct {
	BlockSize     uint64
	Size          uint64
	Location      string
	IndexLocation string
}

// Cache is a shared, persistent, block-granular read cache. The zero value
// is not usable; construct one with New or Open.
type Cache struct {
	mu       sync.RWMutex
	closed   bool
	snapshot Snapshot

	idx   *bitindex.Index
	reg   *region.Region
	coord *coordinator.Coordinator
	res   *resolver.Resolver

	metrics metrics.CacheMetrics
}

// New opens or creates a Cache at the locations given in opts, mapping its
// data file and validity bitmap and opening its lock file. If the files
// already exist from a prior run, whatever blocks they already record as
// valid are preserved and immediately usable.
func New(opts Options) (*Cache, error) {
	if opts.BlockSize == 0 || opts.Location == "" || opts.IndexLocation == "" {
		return nil, fmt.Errorf("smmap: new cache: %w", cacheerr.ErrInvalidConfig)
	}

	nblocks := (opts.Size + opts.BlockSize - 1) / opts.BlockSize

	idx, err := bitindex.Open(opts.IndexLocation, nblocks)
	if err != nil {
		return nil, err
	}
	reg, err := region.Open(opts.Location, opts.Size)
	if err != nil {
		idx.Close()
		return nil, err
	}
	coord, err := coordinator.Open(opts.IndexLocation+".lock", nblocks)
	if err != nil {
		reg.Close()
		idx.Close()
		return nil, err
	}

	res := resolver.New(idx, reg, coord, opts.BlockSize, opts.Size, opts.Fetcher, opts.AsyncFetcher)
	res.Metrics = opts.Metrics

	return &Cache{
		snapshot: Snapshot{
			BlockSize:     opts.BlockSize,
			Size:          opts.Size,
			Location:      opts.Location,
			IndexLocation: opts.IndexLocation,
		},
		idx:     idx,
		reg:     reg,
		coord:   coord,
		res:     res,
		metrics: opts.Metrics,
	}, nil
}

// Open reopens a Cache from a Snapshot taken by a prior Cache.Snapshot
// call, re-supplying the upstream fetchers the snapshot could not carry.
// This is the Go analogue of handing the whole cache object to another
// worker across a pickling boundary: here, the receiving process passes
// its own fetcher closures back in explicitly.
func Open(s Snapshot, fetcher resolver.Fetcher, afetcher resolver.AsyncFetcher) (*Cache, error) {
	return New(Options{
		BlockSize:     s.BlockSize,
		Size:          s.Size,
		Location:      s.Location,
		IndexLocation: s.IndexLocation,
		Fetcher:       fetcher,
		AsyncFetcher:  afetcher,
	})
}

// Snapshot returns a serializable description of this Cache's on-disk
// layout, suitable for handing to Open in another process.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Fetch returns the end-start authoritative bytes for [start, end),
// populating any missing blocks along the way via the synchronous Fetcher.
func (c *Cache) Fetch(start, end uint64) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, cacheerr.ErrClosed
	}
	return c.res.Fetch(start, end)
}

// FetchContext is the cooperative-async entry point; see resolver.Resolver.FetchContext.
func (c *Cache) FetchContext(ctx context.Context, start, end uint64) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, cacheerr.ErrClosed
	}
	return c.res.FetchContext(ctx, start, end)
}

// Fill installs data the caller already knows to be authoritative directly
// into the cache at offset, bypassing any upstream fetcher — for example,
// warming the cache from a local write-through path or a prior prefetch.
// offset must be block-aligned, and len(data) must be a multiple of the
// blocksize unless the write reaches exactly the end of the cache (the
// final block may be short). Fill takes the same writer lock discipline as
// a populated block run, so it is safe to call concurrently with Fetch
// from any cooperating process.
func (c *Cache) Fill(offset uint64, data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return cacheerr.ErrClosed
	}

	blocksize := c.snapshot.BlockSize
	size := c.snapshot.Size
	end := offset + uint64(len(data))

	if offset%blocksize != 0 {
		return fmt.Errorf("smmap: fill offset %d: %w", offset, cacheerr.ErrMisalignedFill)
	}
	if end != size && end%blocksize != 0 {
		return fmt.Errorf("smmap: fill end %d: %w", end, cacheerr.ErrMisalignedFill)
	}
	if end > size {
		return fmt.Errorf("smmap: fill [%d,%d) size=%d: %w", offset, end, size, cacheerr.ErrOutOfRange)
	}
	if len(data) == 0 {
		return nil
	}

	lo := offset / blocksize
	hi := (end + blocksize - 1) / blocksize

	if err := c.coord.Lock(lo, hi); err != nil {
		return err
	}
	defer c.coord.Unlock(lo, hi)

	if err := c.reg.WriteAt(offset, data); err != nil {
		return err
	}
	if err := c.reg.Flush(offset, uint64(len(data))); err != nil {
		return err
	}
	for b := lo; b < hi; b++ {
		c.idx.MarkValid(b)
	}
	return c.idx.Flush()
}

// Close releases every mapping and file descriptor this Cache holds. Other
// processes that still have the same files mapped are unaffected. Close is
// idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if err := c.coord.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.reg.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.idx.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func init() {
	remotefs.RegisterCache("smmap", func(opts remotefs.CacheOptions) (remotefs.Cache, error) {
		if opts.File == nil {
			return nil, fmt.Errorf("smmap: cache class requires a remote file: %w", cacheerr.ErrIncompatibleCache)
		}
		file := opts.File
		size := opts.Size
		if size == 0 {
			size = uint64(file.Size())
		}
		return New(Options{
			BlockSize:     opts.BlockSize,
			Size:          size,
			Location:      opts.Location,
			IndexLocation: opts.IndexLocation,
			Fetcher: func(start, end uint64) ([]byte, error) {
				return file.FetchRange(context.Background(), int64(start), int64(end))
			},
			AsyncFetcher: func(ctx context.Context, start, end uint64) ([]byte, error) {
				return file.FetchRange(ctx, int64(start), int64(end))
			},
		})
	})
}
