package logger

import "log/slog"

// Standard field keys for structured logging across the cache and its
// remote-filesystem collaborators. Use these consistently so log lines are
// greppable and aggregatable.
const (
	KeyTraceID = "trace_id"

	KeyLocation      = "location"       // cache data file path
	KeyIndexLocation = "index_location" // cache index file path
	KeyRangeStart    = "range_start"
	KeyRangeEnd      = "range_end"
	KeyBlockIndex    = "block_index"
	KeyBlockLo       = "block_lo"
	KeyBlockHi       = "block_hi"
	KeyBlockSize     = "block_size"
	KeyBytes         = "bytes"
	KeyDurationMs    = "duration_ms"
	KeyError         = "error"
	KeyOutcome       = "outcome" // "ok" or "error"
	KeyCacheClass    = "cache_class"
	KeyRemotePath    = "remote_path"
	KeyRetries       = "retries"
)

func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

func Location(path string) slog.Attr { return slog.String(KeyLocation, path) }

func IndexLocation(path string) slog.Attr { return slog.String(KeyIndexLocation, path) }

func RangeStart(v uint64) slog.Attr { return slog.Uint64(KeyRangeStart, v) }

func RangeEnd(v uint64) slog.Attr { return slog.Uint64(KeyRangeEnd, v) }

func BlockIndex(b uint64) slog.Attr { return slog.Uint64(KeyBlockIndex, b) }

func BlockRun(lo, hi uint64) []slog.Attr {
	return []slog.Attr{slog.Uint64(KeyBlockLo, lo), slog.Uint64(KeyBlockHi, hi)}
}

func BlockSize(size uint64) slog.Attr { return slog.Uint64(KeyBlockSize, size) }

func Bytes(n int64) slog.Attr { return slog.Int64(KeyBytes, n) }

func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Outcome(ok bool) slog.Attr {
	if ok {
		return slog.String(KeyOutcome, "ok")
	}
	return slog.String(KeyOutcome, "error")
}

func CacheClass(name string) slog.Attr { return slog.String(KeyCacheClass, name) }

func RemotePath(path string) slog.Attr { return slog.String(KeyRemotePath, path) }

func Retries(n int) slog.Attr { return slog.Int(KeyRetries, n) }
