package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBodyAndValidators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", "Wed, 01 Jan 2025 00:00:00 GMT")
		w.Write([]byte("# hello"))
	}))
	defer srv.Close()

	f := New(srv.Client())
	res, err := f.Fetch(context.Background(), srv.URL, Validators{})
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	assert.Equal(t, "# hello", string(res.Body))
	assert.Equal(t, `"abc123"`, res.ETag)
	assert.Equal(t, "Wed, 01 Jan 2025 00:00:00 GMT", res.LastModified)
}

func TestFetchSendsConditionalHeaders(t *testing.T) {
	var gotINM, gotIMS string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotINM = r.Header.Get("If-None-Match")
		gotIMS = r.Header.Get("If-Modified-Since")
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	f := New(srv.Client())
	res, err := f.Fetch(context.Background(), srv.URL, Validators{ETag: `"abc123"`, LastModified: "Wed, 01 Jan 2025 00:00:00 GMT"})
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, `"abc123"`, gotINM)
	assert.Equal(t, "Wed, 01 Jan 2025 00:00:00 GMT", gotIMS)
}

func TestFetchNonSuccessStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, Validators{})
	require.Error(t, err)
	var blzErr *blzerrors.Error
	require.ErrorAs(t, err, &blzErr)
	assert.Equal(t, blzerrors.Network, blzErr.Kind)
}

func TestFetchBodyOverLimitIsResourceLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, MaxBodyBytes+1024)
		w.Write(buf)
	}))
	defer srv.Close()

	f := New(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, Validators{})
	require.Error(t, err)
	var blzErr *blzerrors.Error
	require.ErrorAs(t, err, &blzErr)
	assert.Equal(t, blzerrors.ResourceLimited, blzErr.Kind)
}
