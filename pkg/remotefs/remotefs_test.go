package remotefs

import (
	"context"
	"strings"
	"testing"
)

type stubCache struct{}

func (stubCache) Fetch(start, end uint64) ([]byte, error) { return nil, nil }
func (stubCache) FetchContext(ctx context.Context, start, end uint64) ([]byte, error) {
	return nil, nil
}
func (stubCache) Close() error { return nil }

func TestRegisterAndOpenCache(t *testing.T) {
	name := "test-cache-register-and-open"
	var gotOpts CacheOptions
	RegisterCache(name, func(opts CacheOptions) (Cache, error) {
		gotOpts = opts
		return stubCache{}, nil
	})

	c, err := OpenCache(name, CacheOptions{BlockSize: 4096, Location: "data"})
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if c == nil {
		t.Fatal("OpenCache returned nil Cache")
	}
	if gotOpts.BlockSize != 4096 || gotOpts.Location != "data" {
		t.Fatalf("factory received %+v", gotOpts)
	}
}

func TestOpenCacheUnknownNameFails(t *testing.T) {
	_, err := OpenCache("no-such-cache-class", CacheOptions{})
	if err == nil || !strings.Contains(err.Error(), "unknown cache class") {
		t.Fatalf("OpenCache with unknown name: got %v", err)
	}
}

func TestRegisterCacheDuplicateNamePanics(t *testing.T) {
	name := "test-cache-duplicate"
	RegisterCache(name, func(opts CacheOptions) (Cache, error) { return stubCache{}, nil })

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on duplicate registration")
		}
	}()
	RegisterCache(name, func(opts CacheOptions) (Cache, error) { return stubCache{}, nil })
}
