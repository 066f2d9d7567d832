// Package openapi discovers geofield form fields declared in OpenAPI request
// bodies.
package openapi

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoaderOptions configure Load.
type LoaderOptions struct {
	// FileSystem resolves "fs:" locations.
	FileSystem fs.FS
	// HTTPClient fetches http(s) locations. Nil disables HTTP loading.
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Load reads a document from a file path, an "fs:<name>" entry of
// opts.FileSystem or an http(s) URL.
func Load(ctx context.Context, location string, opts LoaderOptions) ([]byte, error) {
	if location == "" {
		return nil, errors.New("openapi loader: location is required")
	}
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if opts.HTTPClient == nil {
			return nil, errors.New("openapi loader: http support disabled")
		}
		return loadHTTP(ctx, opts.HTTPClient, location, opts.RequestTimeout)
	case strings.HasPrefix(location, "fs:"):
		return loadFromFS(ctx, opts.FileSystem, strings.TrimPrefix(location, "fs:"))
	default:
		return loadFile(ctx, location)
	}
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func loadFromFS(ctx context.Context, filesystem fs.FS, name string) ([]byte, error) {
	if filesystem == nil {
		return nil, errors.New("openapi loader: filesystem is not configured")
	}
	if name == "" {
		return nil, errors.New("openapi loader: fs path is required")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return fs.ReadFile(filesystem, name)
}

func loadHTTP(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("openapi loader: unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}
