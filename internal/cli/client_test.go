package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/ytdl-agent/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseStream(n int) string {
	var b strings.Builder
	b.WriteString(": keep-alive\n\n")
	b.WriteString("event: window\ndata: {\"id\":\"win_1\"}\n\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "event: notification\ndata: {\"seq\":%d}\n\n", i)
	}
	return b.String()
}

func TestReadSSE_StopsWhenDoneWithoutReader(t *testing.T) {
	out := make(chan Event)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		readSSE(strings.NewReader(sseStream(10)), out, done)
		close(finished)
	}()

	first := <-out
	assert.Equal(t, "window", first.Name)
	assert.JSONEq(t, `{"id":"win_1"}`, string(first.Data))

	close(done)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after done was closed")
	}
	_, ok := <-out
	assert.False(t, ok, "events channel must be closed")
}

func TestOpenWindow_CloseWithUndrainedEvents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sseStream(50)))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	win, err := NewClient(ts.URL, logging.Discard()).OpenWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "win_1", win.ID)

	// Let the reader fill its buffer and block.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, win.Close())
	assert.NoError(t, win.Close(), "second Close is a no-op")

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-win.Events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after Close")
		}
	}
}
