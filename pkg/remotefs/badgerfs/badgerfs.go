// Package badgerfs implements remotefs.RemoteFS against an embedded
// Badger key-value store, treating each key's value as a whole remote
// object. It is the in-process stand-in for a "slow" remote used in tests
// and single-node deployments: FetchRange slices the stored value rather
// than making a network call, but goes through the same interface every
// other remotefs implementation does, so the cache above it is exercised
// identically.
package badgerfs

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/smmap/pkg/remotefs"
)

var _ remotefs.RemoteFS = (*FS)(nil)

// FS wraps the Badger database that Open opened; Close closes it.
type FS struct {
	db *badger.DB
}

// Open opens or creates a Badger database at dir.
func Open(dir string) (*FS, error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, fmt.Errorf("badgerfs: open %s: %w", dir, err)
	}
	return &FS{db: db}, nil
}

// Put stores the whole object under key, overwriting any previous value.
func (fs *FS) Put(key string, data []byte) error {
	return fs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Close closes the underlying database.
func (fs *FS) Close() error {
	return fs.db.Close()
}

// Open looks up key and returns a handle exposing its stored value for
// range reads. The key must already have been written via Put.
func (fs *FS) Open(ctx context.Context, key string) (remotefs.RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := fs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badgerfs: get %s: %w", key, err)
	}

	return &file{data: data}, nil
}

type file struct {
	data []byte
}

func (f *file) Size() int64 { return int64(len(f.data)) }

func (f *file) Close() error { return nil }

func (f *file) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 || end > int64(len(f.data)) || start > end {
		return nil, fmt.Errorf("badgerfs: range [%d,%d) out of bounds for %d-byte object", start, end, len(f.data))
	}
	out := make([]byte, end-start)
	copy(out, f.data[start:end])
	return out, nil
}
