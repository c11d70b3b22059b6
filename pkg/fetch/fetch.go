// Package fetch provides orchestration helpers built on top of
// remotefs.RangeFetcher and the cache-class registry: whole-object
// prefetch, batched multi-range gather, and named-cache construction.
// None of this is part of the cache's core algorithm — it's convenience
// plumbing callers reach for instead of hand-rolling the same loop.
package fetch

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/smmap/internal/cacheerr"
	"github.com/marmos91/smmap/pkg/remotefs"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End int64
}

// PrefetchToFile pulls the whole object behind rf into dst, overwriting
// any existing file. size bytes are requested in a single FetchRange call;
// callers fetching very large objects should prefer FetchRanges with a
// chunked Range list instead.
func PrefetchToFile(ctx context.Context, rf remotefs.RangeFetcher, size int64, dst string) error {
	data, err := rf.FetchRange(ctx, 0, size)
	if err != nil {
		return fmt.Errorf("fetch: prefetch: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("fetch: prefetch: got %d bytes, want %d", len(data), size)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("fetch: prefetch: write %s: %w", dst, err)
	}
	return nil
}

// FetchRanges fetches every range in ranges concurrently, bounded by
// maxWorkers (a value <= 0 means unbounded), and returns results in the
// same order as ranges. The first error from any range cancels the rest
// via the errgroup's derived context.
func FetchRanges(ctx context.Context, rf remotefs.RangeFetcher, ranges []Range, maxWorkers int) ([][]byte, error) {
	results := make([][]byte, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	if maxWorkers > 0 {
		g.SetLimit(maxWorkers)
	}

	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			data, err := rf.FetchRange(gctx, r.Start, r.End)
			if err != nil {
				return fmt.Errorf("fetch: range [%d,%d): %w", r.Start, r.End, err)
			}
			results[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Registry opens named caches against a remote file, the Go analogue of
// spec.md §6's "look up a cache class by name and construct it against
// this filesystem" collaborator contract.
type Registry struct{}

// Open constructs the named cache class against file, which must already
// be open. Open reads "block_size" and "size" (uint64) and "location" and
// "index_location" (string) from opts; the "smmap" class uses the file's own
// size when "size" is absent or zero.
func (Registry) Open(ctx context.Context, cacheName string, file remotefs.RemoteFile, opts map[string]any) (remotefs.Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheOpts := remotefs.CacheOptions{File: file}

	if v, ok := opts["block_size"].(uint64); ok {
		cacheOpts.BlockSize = v
	}
	if v, ok := opts["size"].(uint64); ok {
		cacheOpts.Size = v
	}
	if v, ok := opts["location"].(string); ok {
		cacheOpts.Location = v
	}
	if v, ok := opts["index_location"].(string); ok {
		cacheOpts.IndexLocation = v
	}

	if cacheOpts.Location == "" || cacheOpts.IndexLocation == "" {
		return nil, fmt.Errorf("fetch: open %q: location and index_location are required: %w", cacheName, cacheerr.ErrInvalidConfig)
	}

	return remotefs.OpenCache(cacheName, cacheOpts)
}
