// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBytes bounds a downloaded image. Avatars are requested at
// 64px and are a few kilobytes.
const DefaultMaxBytes = 1 << 20

// Fetcher downloads the body at a URL. Implementations must honour
// ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError is returned by HTTPFetcher for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying could succeed: server errors and
// rate limiting are retried, other client errors are not.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// HTTPFetcher fetches images over HTTP.
type HTTPFetcher struct {
	// Client performs requests. Nil means http.DefaultClient.
	Client *http.Client

	// MaxBytes bounds the response body. Zero means DefaultMaxBytes.
	MaxBytes int64

	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	if f.UserAgent != "" {
		request.Header.Set("User-Agent", f.UserAgent)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: response.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, limit)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("GET %s: empty body", url)
	}
	return body, nil
}
