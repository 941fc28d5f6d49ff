// Package image downloads distribution cloud images into the local
// cache directory.
//
// Downloads are atomic: the image is written to a temp file in the cache
// directory and renamed into place only after the body has been fully
// read. A file already present in the cache is never re-downloaded.
package image

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads cloud images over HTTP into a cache directory.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher writing into cacheDir. If cacheDir is empty
// the per-user cache directory is used. The directory is created on demand.
func NewFetcher(cacheDir string) (*Fetcher, error) {
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine cache directory: %w", err)
		}
		cacheDir = filepath.Join(base, "virtup", "images")
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	return &Fetcher{
		// Downloads are multi-gigabyte; only the dial/response phase
		// gets a client timeout, the body copy is bounded by ctx.
		client:   &http.Client{Timeout: 0},
		cacheDir: cacheDir,
	}, nil
}

// CacheDir returns the directory images are cached in.
func (f *Fetcher) CacheDir() string {
	return f.cacheDir
}

// Path returns the cache path an image with the given filename would have.
func (f *Fetcher) Path(filename string) string {
	return filepath.Join(f.cacheDir, filename)
}

// Cached reports whether an image with the given filename is already present.
func (f *Fetcher) Cached(filename string) bool {
	info, err := os.Stat(f.Path(filename))
	return err == nil && info.Mode().IsRegular()
}

// Fetch ensures the image named filename is present in the cache,
// downloading it from url if absent. Returns the cached file path.
//
// Presence on disk is the only freshness check; a cached file is trusted
// as-is.
func (f *Fetcher) Fetch(ctx context.Context, url, filename string) (string, error) {
	dest := f.Path(filename)
	if f.Cached(filename) {
		log.Printf("Image %s already cached, skipping download", filename)
		return dest, nil
	}

	log.Printf("Downloading %s...", url)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(f.cacheDir, filename+".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// On any failure path the partial download is removed.
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	log.Printf("Downloaded %s (%d bytes) in %v", filename, written, time.Since(start).Round(time.Millisecond))
	return dest, nil
}
