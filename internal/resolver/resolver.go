// Package resolver implements the cache's Range Resolver: given a
// requested byte range, it computes the block runs that must be fetched,
// aligns them to block boundaries, dispatches them through the Fetch
// Coordinator, and assembles the final byte slice.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/smmap/internal/bitindex"
	"github.com/marmos91/smmap/internal/cacheerr"
	"github.com/marmos91/smmap/internal/coordinator"
	"github.com/marmos91/smmap/internal/metrics"
	"github.com/marmos91/smmap/internal/region"
)

// DefaultMaxFetchBlocks bounds the longest single upstream call a Resolver
// will issue when coalescing adjacent invalid blocks. Chosen so that, at
// the common 4MB block size used elsewhere in this codebase, a single
// coalesced fetch tops out at 4GB — large enough that real workloads never
// hit the cap, small enough that a corrupt or adversarial size field can't
// force a single pathologically large upstream call.
const DefaultMaxFetchBlocks = 1024

// Fetcher retrieves the authoritative bytes for the half-open byte range
// [start, end) from the upstream source. It must return exactly end-start
// bytes on success.
type Fetcher func(start, end uint64) ([]byte, error)

// AsyncFetcher is the cooperative-async analogue of Fetcher. The only
// suspension point in FetchContext is the call to this function.
type AsyncFetcher func(ctx context.Context, start, end uint64) ([]byte, error)

// Resolver assembles cache reads out of block-aligned fetches.
type Resolver struct {
	idx       *bitindex.Index
	reg       *region.Region
	coord     *coordinator.Coordinator
	blocksize uint64
	size      uint64
	nblocks   uint64
	fetcher   Fetcher
	afetcher  AsyncFetcher

	// MaxFetchBlocks bounds coalescing; defaults to DefaultMaxFetchBlocks
	// when left zero by New's caller.
	MaxFetchBlocks uint64

	// Metrics is nil-safe; every call site checks before use.
	Metrics metrics.CacheMetrics
}

// New constructs a Resolver over already-open Block Index, Data Region and
// Fetch Coordinator instances. Either fetcher may be nil. Fetch populates
// missing blocks only through fetcher and FetchContext only through
// afetcher; when the one an entry point needs is nil, a call that has to
// populate a block fails with ErrFetcherRequired.
func New(idx *bitindex.Index, reg *region.Region, coord *coordinator.Coordinator, blocksize, size uint64, fetcher Fetcher, afetcher AsyncFetcher) *Resolver {
	nblocks := uint64(0)
	if blocksize > 0 {
		nblocks = (size + blocksize - 1) / blocksize
	}
	return &Resolver{
		idx:            idx,
		reg:            reg,
		coord:          coord,
		blocksize:      blocksize,
		size:           size,
		nblocks:        nblocks,
		fetcher:        fetcher,
		afetcher:       afetcher,
		MaxFetchBlocks: DefaultMaxFetchBlocks,
	}
}

// Fetch is the synchronous entry point: it returns end-start bytes equal to
// the upstream bytes for [start, end), populating any missing blocks along
// the way.
func (r *Resolver) Fetch(start, end uint64) ([]byte, error) {
	return r.fetch(context.Background(), start, end, false)
}

// FetchContext is the cooperative-async entry point. Its only suspension
// point is the AsyncFetcher call made while becoming the writer of a block
// run; lock acquisition and mmap I/O remain synchronous.
func (r *Resolver) FetchContext(ctx context.Context, start, end uint64) ([]byte, error) {
	return r.fetch(ctx, start, end, true)
}

func (r *Resolver) fetch(ctx context.Context, start, end uint64, async bool) ([]byte, error) {
	if start > end || end > r.size {
		return nil, fmt.Errorf("resolver: fetch [%d,%d) size=%d: %w", start, end, r.size, cacheerr.ErrOutOfRange)
	}
	if start == end {
		return []byte{}, nil
	}

	if r.Metrics != nil {
		begin := time.Now()
		defer func() { r.Metrics.ObserveFetch(int64(end-start), time.Since(begin)) }()
	}

	bLo := start / r.blocksize
	bHi := (end + r.blocksize - 1) / r.blocksize

	for b := bLo; b < bHi; {
		if r.idx.IsValid(b) {
			_, validEnd := r.idx.FindRun(b, bHi, true)
			b = validEnd
			continue
		}

		maxBlocks := r.MaxFetchBlocks
		if maxBlocks == 0 {
			maxBlocks = DefaultMaxFetchBlocks
		}
		_, invalidEnd := r.idx.FindRun(b, bHi, false)
		runCap := invalidEnd
		if runCap-b > maxBlocks {
			runCap = b + maxBlocks
		}

		if err := r.populate(ctx, b, runCap, async); err != nil {
			return nil, err
		}
		// populate only guarantees that block b is now valid: a refused lock
		// extension or a shared in-process result may have covered a shorter
		// run, so re-scan from b instead of jumping to runCap.
	}

	return r.reg.ReadAt(start, end-start)
}

// populate drives the Fetch Coordinator's acquisition protocol (spec 4.3)
// for the run starting at lo, capped at capHi, in-process-deduplicated by
// starting block index so concurrent goroutines/tasks collapse into one
// file-lock attempt.
func (r *Resolver) populate(ctx context.Context, lo, capHi uint64, async bool) error {
	return r.coord.Dedup(lo, func() error {
		acquired, err := r.coord.TryLock(lo, lo+1)
		if err != nil {
			return err
		}

		if !acquired {
			// Another process is writing this block. Block until it
			// releases, then re-check: the previous holder sets the bit
			// before releasing, so we typically observe valid=true.
			waitStart := time.Now()
			err := r.coord.Lock(lo, lo+1)
			if r.Metrics != nil {
				r.Metrics.RecordLockWait(time.Since(waitStart))
			}
			if err != nil {
				return err
			}
			if r.idx.IsValid(lo) {
				return r.coord.Unlock(lo, lo+1)
			}
			// The bit is still unset: the previous holder crashed after
			// acquiring the lock but before marking validity. We become
			// the new writer and retry the fetch.
		} else if r.idx.IsValid(lo) {
			// Acquired, but another process finished between our
			// validity check and our lock: release and take the fast
			// path.
			return r.coord.Unlock(lo, lo+1)
		}

		if (async && r.afetcher == nil) || (!async && r.fetcher == nil) {
			_ = r.coord.Unlock(lo, lo+1)
			return cacheerr.ErrFetcherRequired
		}

		// We are the writer of lo. Re-scan from lo (another writer may
		// have populated some of the tail since capHi was computed) and
		// extend the lock forward to cover the run we will fetch.
		_, runEnd := r.idx.FindRun(lo, capHi, false)
		if runEnd == lo {
			runEnd = lo + 1
		}

		if runEnd > lo+1 {
			ok, err := r.coord.Extend(lo, lo+1, runEnd)
			if err != nil {
				_ = r.coord.Unlock(lo, lo+1)
				return err
			}
			if !ok {
				runEnd = lo + 1
			}
		}
		defer r.coord.Unlock(lo, runEnd)

		return r.writeRun(ctx, lo, runEnd, async)
	})
}

// writeRun issues exactly one upstream call for the byte range covering
// blocks [lo, hi), writes the result into the Data Region, flushes it, and
// marks each covered block valid. Caller must hold the writer lock for
// [lo, hi).
func (r *Resolver) writeRun(ctx context.Context, lo, hi uint64, async bool) error {
	rangeStart := lo * r.blocksize
	rangeEnd := hi * r.blocksize
	if rangeEnd > r.size {
		rangeEnd = r.size
	}

	var data []byte
	var err error
	callStart := time.Now()
	if async {
		data, err = r.afetcher(ctx, rangeStart, rangeEnd)
	} else {
		data, err = r.fetcher(rangeStart, rangeEnd)
	}
	if r.Metrics != nil {
		r.Metrics.ObserveUpstreamCall(int64(rangeEnd-rangeStart), time.Since(callStart), err)
	}
	if err != nil {
		return fmt.Errorf("resolver: upstream fetch [%d,%d): %w", rangeStart, rangeEnd, err)
	}
	if uint64(len(data)) != rangeEnd-rangeStart {
		return fmt.Errorf("resolver: upstream fetch [%d,%d) returned %d bytes: %w", rangeStart, rangeEnd, len(data), cacheerr.ErrShortFetch)
	}

	if err := r.reg.WriteAt(rangeStart, data); err != nil {
		return err
	}
	if err := r.reg.Flush(rangeStart, rangeEnd-rangeStart); err != nil {
		return err
	}

	for b := lo; b < hi; b++ {
		r.idx.MarkValid(b)
	}
	return r.idx.Flush()
}
