// Package discovery implements blz's HEAD-cascade probe (spec.md §4.7):
// given a user-supplied URL or domain, locate an llms-full.txt / llms.txt /
// sitemap.xml resource with the fewest requests possible, trying
// increasingly speculative locations until one hits.
package discovery

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Method records which step of the cascade produced a hit.
type Method string

const (
	LinkHeader    Method = "LinkHeader"
	PathRelative  Method = "PathRelative"
	HostRoot      Method = "HostRoot"
	DocsSubdomain Method = "DocsSubdomain"
	ParentDomain  Method = "ParentDomain"
	NotFound      Method = "NotFound"
)

// HeadTimeout is the per-HEAD-request timeout mandated by spec.md §4.7.
const HeadTimeout = 5 * time.Second

// Result is Discover's outcome.
type Result struct {
	URL                  string
	Method               Method
	RequiresConfirmation bool // set when the hit came from a probe outside the user's stated scope (ParentDomain)
}

// Prober runs the discovery cascade using a shared HTTP client.
type Prober struct {
	client *http.Client
}

// New builds a Prober. client defaults to a plain http.Client; either way
// the Prober uses a copy of it that does not follow redirects, so the
// cascade itself decides whether a redirect status counts as a hit.
func New(client *http.Client) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Prober{client: &c}
}

// Discover runs the cascade against rawURL (a full URL or a bare domain)
// and returns the first hit, or a NotFound result if nothing answered.
func (p *Prober) Discover(ctx context.Context, rawURL string) (Result, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return Result{}, err
	}

	if hit, ok := p.probeLinkHeader(ctx, u); ok {
		return hit, nil
	}
	if hit, ok := p.probePathRelative(ctx, u); ok {
		return hit, nil
	}
	if hit, ok := p.probeHostRoot(ctx, u); ok {
		return hit, nil
	}
	if hit, ok := p.probeDocsSubdomain(ctx, u); ok {
		return hit, nil
	}
	if hit, ok := p.probeParentDomain(ctx, u); ok {
		return hit, nil
	}

	return Result{Method: NotFound}, nil
}

func normalizeURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return url.Parse(raw)
}

// probeLinkHeader is cascade step 1: GET U, inspect Link headers for
// rel="llms-full-txt"/"llms-txt", HEAD each declared target.
func (p *Prober) probeLinkHeader(ctx context.Context, u *url.URL) (Result, bool) {
	reqCtx, cancel := context.WithTimeout(ctx, HeadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, false
	}
	defer resp.Body.Close()

	targets := parseLinkHeader(resp.Header.Values("Link"))
	for _, target := range targets {
		resolved := resolveReference(u, target)
		if p.headHits(ctx, resolved) {
			return Result{URL: resolved, Method: LinkHeader}, true
		}
	}
	return Result{}, false
}

// probePathRelative is cascade step 2: if U has a non-trivial path, HEAD
// P/llms-full.txt and P/llms.txt in parallel.
func (p *Prober) probePathRelative(ctx context.Context, u *url.URL) (Result, bool) {
	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		return Result{}, false
	}
	return p.headEither(ctx, joinPath(u, path, "llms-full.txt"), joinPath(u, path, "llms.txt"), PathRelative)
}

// probeHostRoot is cascade step 3: HEAD at the host root, falling back to
// sitemap.xml if neither llms variant hits.
func (p *Prober) probeHostRoot(ctx context.Context, u *url.URL) (Result, bool) {
	if hit, ok := p.headEither(ctx, joinPath(u, "", "llms-full.txt"), joinPath(u, "", "llms.txt"), HostRoot); ok {
		return hit, true
	}
	if p.headHits(ctx, joinPath(u, "", "sitemap.xml")) {
		return Result{URL: joinPath(u, "", "sitemap.xml"), Method: HostRoot}, true
	}
	return Result{}, false
}

// probeDocsSubdomain is cascade step 4: if the host isn't already docs.*,
// try docs.<host>.
func (p *Prober) probeDocsSubdomain(ctx context.Context, u *url.URL) (Result, bool) {
	host := hostOnly(u.Host)
	if strings.HasPrefix(host, "docs.") {
		return Result{}, false
	}
	docsURL := *u
	docsURL.Host = "docs." + u.Host
	return p.headEither(ctx, joinPath(&docsURL, "", "llms-full.txt"), joinPath(&docsURL, "", "llms.txt"), DocsSubdomain)
}

// probeParentDomain is cascade step 5: if the host is a subdomain (≥3
// labels), probe the parent domain. Any hit requires explicit caller
// confirmation before use since it falls outside the user's stated scope.
func (p *Prober) probeParentDomain(ctx context.Context, u *url.URL) (Result, bool) {
	host := hostOnly(u.Host)
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return Result{}, false
	}
	parent := *u
	parent.Host = strings.Join(labels[1:], ".")

	hit, ok := p.headEither(ctx, joinPath(&parent, "", "llms-full.txt"), joinPath(&parent, "", "llms.txt"), ParentDomain)
	if !ok {
		return Result{}, false
	}
	hit.RequiresConfirmation = true
	return hit, true
}

// headEither HEADs a and b concurrently, waits for both, and returns a if
// it hit, otherwise b if it hit (callers always pass llms-full before
// llms.txt and the full variant is the richer document).
func (p *Prober) headEither(ctx context.Context, a, b string, method Method) (Result, bool) {
	var aHit, bHit bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { aHit = p.headHits(gctx, a); return nil })
	g.Go(func() error { bHit = p.headHits(gctx, b); return nil })
	_ = g.Wait()

	switch {
	case aHit:
		return Result{URL: a, Method: method}, true
	case bHit:
		return Result{URL: b, Method: method}, true
	default:
		return Result{}, false
	}
}

// headHits issues a HEAD request and applies the acceptance rule: 2xx or a
// redirect in {301, 302, 307, 308}.
func (p *Prober) headHits(ctx context.Context, target string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, HeadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true
	case resp.StatusCode == http.StatusMovedPermanently,
		resp.StatusCode == http.StatusFound,
		resp.StatusCode == http.StatusTemporaryRedirect,
		resp.StatusCode == http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func joinPath(u *url.URL, base, file string) string {
	cloned := *u
	if base == "" {
		cloned.Path = "/" + file
	} else {
		cloned.Path = base + "/" + file
	}
	cloned.RawQuery = ""
	cloned.Fragment = ""
	return cloned.String()
}

func resolveReference(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
