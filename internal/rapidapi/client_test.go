package rapidapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{Key: "secret", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestVideoURL_PicksFirstVideo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/download", r.URL.Path)
		require.Equal(t, "https://www.instagram.com/reel/Cx1AbC", r.URL.Query().Get("url"))
		require.Equal(t, "secret", r.Header.Get("x-rapidapi-key"))
		require.Equal(t, DefaultHost, r.Header.Get("x-rapidapi-host"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"medias":[
			{"type":"image","url":"https://cdn.example/thumb.jpg"},
			{"type":"video","url":"https://cdn.example/a.mp4","extension":"mp4"},
			{"type":"video","url":"https://cdn.example/b.mp4"}
		]}}`))
	})

	m, err := c.VideoURL(context.Background(), "https://www.instagram.com/reel/Cx1AbC")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/a.mp4", m.URL)
	require.Equal(t, "mp4", m.Extension)
}

func TestVideoURL_NoVideo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"medias":[{"type":"image","url":"https://cdn.example/x.jpg"}]}}`))
	})

	_, err := c.VideoURL(context.Background(), "https://www.instagram.com/p/x")
	require.ErrorIs(t, err, ErrNoVideo)
}

func TestDownload_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Download(context.Background(), "https://www.instagram.com/p/x")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	require.Equal(t, "quota exceeded", se.Body)
}

func TestDownload_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.Download(context.Background(), "https://www.instagram.com/p/x")
	require.ErrorContains(t, err, "decode response")
}

func TestDownload_RequiresURL(t *testing.T) {
	c, err := NewClient(Options{})
	require.NoError(t, err)
	_, err = c.Download(context.Background(), "  ")
	require.Error(t, err)
}

func TestNewClient_BadProxy(t *testing.T) {
	_, err := NewClient(Options{ProxyURL: "://nope"})
	require.Error(t, err)
}
