package feed_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar-caura/lurker/internal/classify"
	"github.com/shahar-caura/lurker/internal/event"
	"github.com/shahar-caura/lurker/internal/feed"
	"github.com/shahar-caura/lurker/internal/item"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*feed.Server, http.Handler) {
	t.Helper()
	s := feed.New(feed.Options{Version: "test-v0.1.0", Retention: time.Minute, MaxEvents: 50}, testLogger())
	h, err := s.Handler()
	require.NoError(t, err)
	return s, h
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seed(s *feed.Server) {
	s.Record(event.ItemCaptured{Item: item.Item{Name: "Doom Shell", Rarity: item.RarityRare, Identified: true}, At: time.Now()})
	s.Record(event.TradeOfferDetected{Offer: classify.TradeOffer{Raw: "~b/o 5 chaos"}, At: time.Now()})
	s.Record(event.ItemCaptured{Item: item.Item{Name: "Berek's Grip", Rarity: item.RarityUnique, Identified: true}, At: time.Now()})
}

func TestOpenAPI_Valid(t *testing.T) {
	doc, err := feed.OpenAPI()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/events"))
}

func TestGetHealth(t *testing.T) {
	s, h := newTestServer(t)
	seed(s)

	rec := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp feed.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-v0.1.0", resp.Version)
	assert.Equal(t, 3, resp.Events)
}

func TestListEvents(t *testing.T) {
	s, h := newTestServer(t)
	seed(s)

	rec := get(t, h, "/api/events")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp feed.EventList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 3, resp.Total)
	// Newest first.
	assert.Equal(t, "Berek's Grip", resp.Events[0].Item.Name)
	assert.Equal(t, "~b/o 5 chaos", resp.Events[1].Offer.Raw)
	assert.Equal(t, "Doom Shell", resp.Events[2].Item.Name)
}

func TestListEvents_FilterAndLimit(t *testing.T) {
	s, h := newTestServer(t)
	seed(s)

	rec := get(t, h, "/api/events?kind=item&limit=1")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp feed.EventList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, feed.KindItem, resp.Events[0].Kind)
	assert.Equal(t, "Berek's Grip", resp.Events[0].Item.Name)
}

func TestListEvents_Empty(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(t, h, "/api/events")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[],"total":0}`, rec.Body.String())
}

func TestListEvents_InvalidParams(t *testing.T) {
	_, h := newTestServer(t)

	for _, target := range []string{
		"/api/events?limit=0",
		"/api/events?limit=101",
		"/api/events?limit=lots",
		"/api/events?kind=whisper",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, h, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(t, h, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStream_ReceivesRecordedEvents(t *testing.T) {
	s, h := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil).WithContext(ctx)
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	// Give the client time to register.
	time.Sleep(100 * time.Millisecond)
	s.Record(event.TradeOfferDetected{Offer: classify.TradeOffer{Raw: "~price 2 divine"}, At: time.Now()})
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for stream to close")
	}

	body := rec.body()
	assert.Contains(t, body, ": connected")
	assert.Contains(t, body, "data: ")
	assert.Contains(t, body, "~price 2 divine")
}

func TestRun_SubscribesToBus(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	bus := event.NewBus(testLogger())
	s := feed.New(feed.Options{Addr: addr, Version: "v", Retention: time.Minute, MaxEvents: 10}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, bus) }()

	require.Eventually(t, func() bool { return bus.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	bus.Publish(event.TradeOfferDetected{Offer: classify.TradeOffer{Raw: "~b/o 1 exalted"}, At: time.Now()})

	resp, err := http.Get("http://" + addr + "/api/events?kind=trade")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list feed.EventList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Events, 1)
	assert.Equal(t, "~b/o 1 exalted", list.Events[0].Offer.Raw)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, 0, bus.Len(), "unsubscribed on exit")
}

// flushRecorder wraps httptest.ResponseRecorder to implement http.Flusher.
type flushRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Write(p)
}

func (f *flushRecorder) Flush() {}

func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Clone(f.Body.String())
}
