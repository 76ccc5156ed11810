// Package fetcher implements blz's conditional-GET boundary contract
// (spec.md §4.9): send stored ETag/Last-Modified validators, recognize 304
// as "unchanged", and surface anything else but a successful fetch as a
// Network error.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"strconv"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
)

// MaxBodyBytes bounds how much of a response body the fetcher will read,
// guarding against an unbounded-size response to a user-supplied URL.
const MaxBodyBytes = 64 << 20 // 64 MiB

// Result is a successful fetch. Unchanged is true on a 304 response, in
// which case Body/ETag/LastModified are the zero value and the caller
// should keep reusing its previously stored content.
type Result struct {
	Unchanged    bool
	Body         []byte
	ETag         string
	LastModified string
}

// Validators carries the conditional-GET headers a caller already has on
// file for a source, if any.
type Validators struct {
	ETag         string
	LastModified string
}

// Fetcher performs conditional GETs over a shared HTTP client.
type Fetcher struct {
	client *http.Client
}

// New builds a Fetcher. client defaults to http.DefaultClient.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch performs a conditional GET against url using prior. A 304 response
// returns Result{Unchanged: true}. Any non-2xx, non-304 response is a
// Network error.
func (f *Fetcher) Fetch(ctx context.Context, url string, prior Validators) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, blzerrors.Wrap(blzerrors.InvalidURL, "fetcher.fetch", err).WithContext("url", url)
	}
	if prior.ETag != "" {
		req.Header.Set("If-None-Match", prior.ETag)
	}
	if prior.LastModified != "" {
		req.Header.Set("If-Modified-Since", prior.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, blzerrors.Wrap(blzerrors.Network, "fetcher.fetch", err).WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return Result{Unchanged: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, blzerrors.New(blzerrors.Network, "fetcher.fetch", "unexpected response status").
			WithContext("url", url).
			WithContext("status", strconv.Itoa(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return Result{}, blzerrors.Wrap(blzerrors.Io, "fetcher.fetch", err).WithContext("url", url)
	}
	if len(body) > MaxBodyBytes {
		return Result{}, blzerrors.New(blzerrors.ResourceLimited, "fetcher.fetch", "response body exceeds size limit").WithContext("url", url)
	}

	return Result{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
