package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/me/ytdl-agent/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	var gotID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download", r.URL.Path)
		gotID = r.URL.Query().Get("id")
		w.Write([]byte(`{"state":"ACK"}`))
	}))
	defer ts.Close()

	ack, err := NewClient(ts.URL, time.Second).Download(context.Background(), "PL1&x")
	require.NoError(t, err)
	assert.Equal(t, model.AckAccepted, ack.State)
	assert.Equal(t, "PL1&x", gotID, "key is query-escaped")
}

func TestDownload_InvalidBodyIsRejected(t *testing.T) {
	for name, body := range map[string]string{
		"empty": "",
		"html":  "<html>proxy login</html>",
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(body))
			}))
			defer ts.Close()

			_, err := NewClient(ts.URL, time.Second).Download(context.Background(), "k")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decode ack")
		})
	}
}

func TestDownload_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, time.Second).Download(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestDownload_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	_, err := NewClient(ts.URL, time.Second).Download(context.Background(), "k")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		w.Write([]byte(`{"id":"PL1","status":"downloading","playlist_track_count":12,"playlist_track_done":5}`))
	}))
	defer ts.Close()

	rec, err := NewClient(ts.URL, time.Second).Status(context.Background(), "PL1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRecord{
		ID: "PL1", Status: model.JobStatusDownloading, PlaylistTrackCount: 12, PlaylistTrackDone: 5,
	}, rec)
	assert.True(t, rec.IsPlaylist())
}

func TestStatus_Non2xxIsUnknown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	rec, err := NewClient(ts.URL, time.Second).Status(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, model.UnknownStatus(), rec)
}

func TestStatus_BadBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, time.Second).Status(context.Background(), "k")
	assert.Error(t, err)
}
