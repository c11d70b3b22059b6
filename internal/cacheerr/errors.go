// Package cacheerr defines the sentinel errors shared across the cache's
// internal packages and its public facade.
package cacheerr

import "errors"

var (
	// ErrInvalidConfig is returned when a cache is constructed with a zero
	// blocksize or an empty data or index path. Paths that cannot be opened
	// surface as the wrapped I/O error instead.
	ErrInvalidConfig = errors.New("smmap: invalid configuration")

	// ErrFetcherRequired is returned when a fetch has to populate a block
	// but the fetcher for its entry point (synchronous for Fetch,
	// asynchronous for FetchContext) was not configured.
	ErrFetcherRequired = errors.New("smmap: no fetcher configured")

	// ErrMisalignedFill is returned by Fill when offset or offset+len(data)
	// is not block-aligned (the final block may end at the object size).
	ErrMisalignedFill = errors.New("smmap: fill offset not block-aligned")

	// ErrShortFetch is returned when an upstream fetcher returns a buffer
	// whose length does not match the requested range.
	ErrShortFetch = errors.New("smmap: upstream fetch returned wrong length")

	// ErrIncompatibleCache is returned when the "smmap" cache strategy is
	// requested against a remote filesystem that cannot supply the
	// fetcher shape the request asked for.
	ErrIncompatibleCache = errors.New("smmap: cache incompatible with filesystem")

	// ErrClosed is returned when an operation is attempted on a cache
	// whose mappings have already been released.
	ErrClosed = errors.New("smmap: cache is closed")

	// ErrOutOfRange is returned when a requested byte range falls outside
	// [0, size).
	ErrOutOfRange = errors.New("smmap: range out of bounds")
)
