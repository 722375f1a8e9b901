package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Photo(t *testing.T) {
	payload := []byte("jpeg-bytes")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	d := NewDownloader(zerolog.Nop())
	got, err := d.Photo(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloader_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	d := NewDownloader(zerolog.Nop())
	_, err := d.Video(context.Background(), ts.URL)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestDownloader_RejectsOversizedByHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(MaxFileSize+1))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := NewDownloader(zerolog.Nop())
	_, err := d.Video(context.Background(), ts.URL)
	assert.ErrorContains(t, err, "too large")
}

func TestDownloader_SelfSignedCertificate(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	d := NewDownloader(zerolog.Nop())
	got, err := d.Photo(context.Background(), ts.URL)
	require.NoError(t, err, "CDN-style invalid certificates must be accepted")
	assert.Equal(t, []byte("ok"), got)
}
