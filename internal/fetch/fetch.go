// Package fetch downloads remote media assets to local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// DownloadError reports a transport-level failure for a remote asset.
// Filesystem failures are returned as plain wrapped errors instead.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Fetcher streams HTTP response bodies to disk. No retries, no resume.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher returns a Fetcher using a default HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{httpClient: &http.Client{}}
}

// Download fetches url and writes the body to dest. A partial file is
// removed on write failure.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DownloadError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}
