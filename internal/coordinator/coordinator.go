// Package coordinator implements the cache's Fetch Coordinator: a
// cross-process file-lock discipline that partitions pending work among
// callers and serializes writers of any specific block without blocking
// readers of already-valid blocks.
//
// One byte of the lock file corresponds to one block index. Exclusive
// advisory byte-range locks (fcntl F_SETLK/F_SETLKW) on that byte are
// mutually exclusive across processes on the same host, which is what
// gives I3 (at most one writer per block) its teeth. Within a process, a
// singleflight.Group keyed by the starting block index of a run collapses
// goroutines/tasks that start at the same block into one file-lock attempt.
// Runs that start at different blocks are not collapsed, and fcntl locks
// never conflict within one process, so two in-process runs may overlap.
package coordinator

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"
)

// Coordinator owns the lock file and the in-process dedup group.
type Coordinator struct {
	file  *os.File
	group singleflight.Group
}

// Open opens or creates the lock file at path. Its length is extended (but
// never truncated) to at least nblocks bytes so a per-block byte lock is
// well-defined for every block index; contents are irrelevant and never
// read.
func Open(path string, nblocks uint64) (*Coordinator, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("coordinator: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("coordinator: stat %s: %w", path, err)
	}

	want := int64(nblocks)
	if want == 0 {
		want = 1
	}
	if info.Size() < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, fmt.Errorf("coordinator: truncate %s: %w", path, err)
		}
	}

	return &Coordinator{file: f}, nil
}

// TryLock attempts a non-blocking exclusive lock over the byte range
// representing block indices [lo, hi). It returns (true, nil) if acquired,
// (false, nil) if another process already holds an overlapping lock, and
// (false, err) on any other failure. A lock held by this same process,
// through any fd, never causes a refusal.
func (c *Coordinator) TryLock(lo, hi uint64) (bool, error) {
	lk := flockFor(lo, hi, unix.F_WRLCK)
	err := unix.FcntlFlock(c.file.Fd(), unix.F_SETLK, &lk)
	if err == nil {
		return true, nil
	}
	if err == unix.EACCES || err == unix.EAGAIN {
		return false, nil
	}
	return false, fmt.Errorf("coordinator: try-lock [%d,%d): %w", lo, hi, err)
}

// Lock blocks until an exclusive lock over [lo, hi) is acquired. Used when
// TryLock is refused: the caller waits for the current writer to finish.
func (c *Coordinator) Lock(lo, hi uint64) error {
	lk := flockFor(lo, hi, unix.F_WRLCK)
	if err := unix.FcntlFlock(c.file.Fd(), unix.F_SETLKW, &lk); err != nil {
		return fmt.Errorf("coordinator: lock [%d,%d): %w", lo, hi, err)
	}
	return nil
}

// Extend widens an exclusive lock already held over [lo, oldHi) to cover
// [lo, newHi) in a single non-blocking fcntl call. Since the caller already
// owns the lock on [lo, oldHi), the kernel merges the adjacent range rather
// than contending with itself; this can still be refused if another process
// holds a lock further into [oldHi, newHi).
func (c *Coordinator) Extend(lo, oldHi, newHi uint64) (bool, error) {
	if newHi <= oldHi {
		return true, nil
	}
	lk := flockFor(lo, newHi, unix.F_WRLCK)
	err := unix.FcntlFlock(c.file.Fd(), unix.F_SETLK, &lk)
	if err == nil {
		return true, nil
	}
	if err == unix.EACCES || err == unix.EAGAIN {
		return false, nil
	}
	return false, fmt.Errorf("coordinator: extend [%d,%d): %w", lo, newHi, err)
}

// Unlock releases the lock over [lo, hi).
func (c *Coordinator) Unlock(lo, hi uint64) error {
	lk := flockFor(lo, hi, unix.F_UNLCK)
	if err := unix.FcntlFlock(c.file.Fd(), unix.F_SETLK, &lk); err != nil {
		return fmt.Errorf("coordinator: unlock [%d,%d): %w", lo, hi, err)
	}
	return nil
}

// Dedup serializes concurrent in-process callers keyed by the starting
// block index of a run: the first caller in actually runs fn; any others
// that arrive while it is in flight wait for and share its result rather
// than each attempting the file lock independently. This is the
// "in-process mutex keyed by block index" the cooperative-async path
// relies on to guarantee only one task per process ever holds the file
// lock for a given block.
func (c *Coordinator) Dedup(startBlock uint64, fn func() error) error {
	_, err, _ := c.group.Do(strconv.FormatUint(startBlock, 10), func() (any, error) {
		return nil, fn()
	})
	return err
}

// Close closes the lock file, implicitly releasing every lock this process
// holds on it.
func (c *Coordinator) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	if err != nil {
		return fmt.Errorf("coordinator: close: %w", err)
	}
	return nil
}

func flockFor(lo, hi uint64, typ int16) unix.Flock_t {
	return unix.Flock_t{
		Type:   typ,
		Whence: int16(io.SeekStart),
		Start:  int64(lo),
		Len:    int64(hi - lo),
	}
}
