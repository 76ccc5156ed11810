package discovery

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientDialingAnyHostTo builds an http.Client whose every dial is redirected
// to addr, regardless of the requested host — lets a test exercise
// subdomain/parent-domain hostname logic against one real httptest listener.
func clientDialingAnyHostTo(addr string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestParseLinkHeaderExtractsLlmsRels(t *testing.T) {
	targets := parseLinkHeader([]string{
		`</llms-full.txt>; rel="llms-full-txt", </other>; rel="canonical"`,
		`</docs/llms.txt>; rel="llms-txt"`,
	})
	assert.Equal(t, []string{"/llms-full.txt", "/docs/llms.txt"}, targets)
}

func TestParseLinkHeaderIgnoresUnrelatedRels(t *testing.T) {
	targets := parseLinkHeader([]string{`<https://example.com>; rel="next"`})
	assert.Empty(t, targets)
}

func TestDiscoverHostRootLlmsTxt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(srv.Client())
	res, err := p.Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, HostRoot, res.Method)
	assert.Contains(t, res.URL, "/llms.txt")
	assert.False(t, res.RequiresConfirmation)
}

func TestDiscoverLinkHeaderCascade(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `</docs/llms-full.txt>; rel="llms-full-txt"`)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/docs/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(srv.Client())
	res, err := p.Discover(context.Background(), srv.URL+"/docs")
	require.NoError(t, err)
	assert.Equal(t, LinkHeader, res.Method)
	assert.Equal(t, srv.URL+"/docs/llms-full.txt", res.URL)
}

func TestDiscoverPathRelativeBeforeHostRoot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(srv.Client())
	res, err := p.Discover(context.Background(), srv.URL+"/docs")
	require.NoError(t, err)
	assert.Equal(t, PathRelative, res.Method)
	assert.Contains(t, res.URL, "/docs/llms.txt")
}

func TestDiscoverNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(srv.Client())
	res, err := p.Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Method)
}

func TestDiscoverParentDomainRequiresConfirmation(t *testing.T) {
	// Only the parent host "sub.example.com" serves llms.txt; the original
	// "docs.sub.example.com" (and the docs-subdomain step, skipped since the
	// host already starts with "docs.") must fail first.
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "sub.example.com" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	p := New(clientDialingAnyHostTo(addr))
	res, err := p.Discover(context.Background(), "http://docs.sub.example.com")
	require.NoError(t, err)
	assert.Equal(t, ParentDomain, res.Method)
	assert.True(t, res.RequiresConfirmation)
}

func TestDiscoverAcceptsRedirectStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/llms-full-moved.txt")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(srv.Client())
	res, err := p.Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, HostRoot, res.Method)
	assert.Contains(t, res.URL, "/llms-full.txt")
}
