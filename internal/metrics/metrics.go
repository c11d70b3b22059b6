// Package metrics defines the observability surface the cache core depends
// on. It has no required third-party dependency: callers that don't want
// metrics pass nil, and every cache-internal call site is nil-safe.
package metrics

import "time"

// CacheMetrics observes Cache Facade and Range Resolver activity.
//
// Implementations must be safe for concurrent use. A nil CacheMetrics is
// valid everywhere this interface is accepted and results in zero
// overhead — callers should prefer passing nil over installing a no-op
// implementation.
type CacheMetrics interface {
	// ObserveFetch records a completed Fetch/FetchContext call: the
	// requested byte span and how long it took end to end, including any
	// upstream calls made to populate missing blocks.
	ObserveFetch(bytes int64, duration time.Duration)

	// ObserveUpstreamCall records one upstream Fetcher/AsyncFetcher
	// invocation made while becoming the writer of a block run.
	ObserveUpstreamCall(bytes int64, duration time.Duration, err error)

	// RecordValidBlocks records the number of blocks currently marked
	// valid for a cache instance, identified by its data path.
	RecordValidBlocks(location string, valid, total uint64)

	// RecordLockWait records time spent blocked waiting for another
	// process's writer lock on a block (the "Refused" branch of the
	// Fetch Coordinator's acquisition protocol).
	RecordLockWait(duration time.Duration)
}

// noop implements CacheMetrics with empty bodies. It exists only so
// constructors that always want a non-nil CacheMetrics (tests, CLI
// tooling) have something to hand back instead of threading nil through;
// the cache core itself is nil-safe and never requires this type.
type noop struct{}

// Noop returns a CacheMetrics that discards everything.
func Noop() CacheMetrics { return noop{} }

func (noop) ObserveFetch(int64, time.Duration)                {}
func (noop) ObserveUpstreamCall(int64, time.Duration, error)  {}
func (noop) RecordValidBlocks(string, uint64, uint64)         {}
func (noop) RecordLockWait(time.Duration)                     {}
