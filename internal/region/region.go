// Package region implements the cache's Data Region: a fixed-size file
// memory-mapped read/write and shared across processes, logically
// partitioned into equal blocks.
package region

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a memory-mapped, block-partitioned byte region.
type Region struct {
	file *os.File
	data []byte // mmap'd region, length = size
	size uint64
}

// Open opens or creates the data file at path, resizing it to exactly size
// bytes whenever its length differs (as it does when newly created), and
// maps it writable and shared.
func Open(path string, size uint64) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("region: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("region: stat %s: %w", path, err)
	}

	if info.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("region: truncate %s: %w", path, err)
		}
	}

	mapLen := size
	if mapLen == 0 {
		mapLen = 1
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(mapLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("region: mmap %s: %w", path, err)
	}

	return &Region{file: f, data: data, size: size}, nil
}

// Size returns the region's fixed length in bytes.
func (r *Region) Size() uint64 {
	return r.size
}

// ReadAt copies out length bytes starting at offset from the shared
// mapping. The caller is responsible for only invoking this over ranges
// whose covering blocks are all valid (see bitindex.Index.IsValid).
func (r *Region) ReadAt(offset, length uint64) ([]byte, error) {
	if offset+length > r.size {
		return nil, fmt.Errorf("region: read [%d,%d) exceeds size %d", offset, offset+length, r.size)
	}
	out := make([]byte, length)
	copy(out, r.data[offset:offset+length])
	return out, nil
}

// WriteAt copies buf into the shared mapping at offset. The caller is
// responsible for only invoking this while holding the Fetch Coordinator's
// lock(s) covering the destination blocks.
func (r *Region) WriteAt(offset uint64, buf []byte) error {
	if offset+uint64(len(buf)) > r.size {
		return fmt.Errorf("region: write [%d,%d) exceeds size %d", offset, offset+uint64(len(buf)), r.size)
	}
	copy(r.data[offset:], buf)
	return nil
}

// Flush is a best-effort barrier that the specified range is visible to
// other processes via their shared mappings before the caller proceeds to
// mark the covering blocks valid.
func (r *Region) Flush(offset, length uint64) error {
	if length == 0 || len(r.data) == 0 {
		return nil
	}
	end := offset + length
	if end > uint64(len(r.data)) {
		end = uint64(len(r.data))
	}
	// msync needs a page-aligned start, so widen down to the page holding offset.
	start := offset &^ (uint64(os.Getpagesize()) - 1)
	if err := unix.Msync(r.data[start:end], unix.MS_SYNC); err != nil {
		return fmt.Errorf("region: msync: %w", err)
	}
	return nil
}

// Close unmaps the region and closes the backing file.
func (r *Region) Close() error {
	var errs []error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			errs = append(errs, fmt.Errorf("region: munmap: %w", err))
		}
		r.data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("region: close: %w", err))
		}
		r.file = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
