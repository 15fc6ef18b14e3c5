package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardcounter/internal/outcome"
	"github.com/lox/cardcounter/internal/tally"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestServer(t *testing.T) (*httptest.Server, *tally.Store, *Hub) {
	t.Helper()
	store := tally.NewStore()
	hub := NewHub(testLogger())
	srv := httptest.NewServer(NewServer(":0", store, hub, testLogger()).Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, store, hub
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp, body := get(t, srv.URL+path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, StatusText, body)
		})
	}

	resp, _ := get(t, srv.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStats(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.Update(outcome.Classification{
		Pair: outcome.Pair32, HasPair: true,
		Winner: outcome.Player, HasWinner: true,
		Game: 1127, HasGame: true,
	})

	resp, body := get(t, srv.URL+"/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var st Stats
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, tally.Category{Count: 1, Games: []int{1127}}, st.Pairs["3/2"])
	assert.Equal(t, tally.Category{Count: 0, Games: []int{}}, st.Pairs["2/3"])
	assert.Equal(t, 1, st.Winners["player"].Count)
	assert.Len(t, st.Parities, 2)
	assert.Contains(t, body, `"games":[]`)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestFeed(t *testing.T) {
	srv, _, hub := newTestServer(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish("📊 *Bilan*")
	hub.Publish("second")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second FeedMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "📊 *Bilan*", first.Text)
	assert.Equal(t, "second", second.Text)
	assert.False(t, first.SentAt.IsZero())
}

func TestFeedSubscriberLeaves(t *testing.T) {
	srv, _, hub := newTestServer(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	hub.Publish("nobody listening")
}

func TestFeedClose(t *testing.T) {
	srv, _, hub := newTestServer(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)

	// New subscribers are turned away after Close.
	late := dial(t, srv)
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestRunStopsWithContext(t *testing.T) {
	s := NewServer("127.0.0.1:0", tally.NewStore(), nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}
