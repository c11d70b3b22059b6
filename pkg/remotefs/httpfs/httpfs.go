// Package httpfs implements remotefs.RemoteFS against a plain HTTP(S)
// server that honors Range requests (RFC 7233), the common case for static
// asset hosts and many object-storage HTTP gateways that don't warrant a
// full cloud SDK.
package httpfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/marmos91/smmap/pkg/remotefs"
)

var _ remotefs.RemoteFS = (*FS)(nil)

// FS opens remote objects at paths relative to BaseURL.
type FS struct {
	BaseURL string
	Client  *http.Client
}

// New builds an FS. A nil client uses http.DefaultClient.
func New(baseURL string, client *http.Client) *FS {
	if client == nil {
		client = http.DefaultClient
	}
	return &FS{BaseURL: baseURL, Client: client}
}

// Open issues a HEAD request to learn the object's size. The server must
// report Content-Length and, implicitly, support byte ranges.
func (fs *FS) Open(ctx context.Context, path string) (remotefs.RemoteFile, error) {
	url := fs.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfs: build head request: %w", err)
	}
	resp, err := fs.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfs: head %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpfs: head %s: unexpected status %d", url, resp.StatusCode)
	}

	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("httpfs: head %s: missing or invalid Content-Length: %w", url, err)
	}

	return &File{fs: fs, url: url, size: size}, nil
}

// File is an open remote object served over HTTP range requests.
type File struct {
	fs   *FS
	url  string
	size int64
}

func (f *File) Size() int64 { return f.size }

func (f *File) Close() error { return nil }

// FetchRange issues a GET with a Range header covering [start, end) and
// requires the server to honor it with a 206 Partial Content response.
func (f *File) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfs: build range request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))

	resp, err := f.fs.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfs: get %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("httpfs: get %s range [%d,%d): server returned status %d, not 206 (range requests unsupported?)", f.url, start, end, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpfs: read body %s: %w", f.url, err)
	}
	return data, nil
}
