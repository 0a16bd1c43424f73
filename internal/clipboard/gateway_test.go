package clipboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("OpenClipboard failed")

// fakeBackend fails the first len(failures) calls with the given errors,
// then succeeds.
type fakeBackend struct {
	mu        sync.Mutex
	text      string
	failures  []error
	calls     int
	clears    int
	delay     time.Duration
	inFlight  int
	maxFlight int
}

func (f *fakeBackend) enter() error {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	var err error
	if len(f.failures) > 0 {
		err = f.failures[0]
		f.failures = f.failures[1:]
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return err
}

func (f *fakeBackend) ReadText() (string, error) {
	if err := f.enter(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeBackend) Clear() error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = ""
	f.clears++
	return nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, backend *fakeBackend, timeout time.Duration) *Gateway {
	t.Helper()
	g := NewGateway(backend, DefaultPolicy, timeout, testLogger())
	t.Cleanup(g.Close)
	return g
}

func TestGateway_ReadSuccess(t *testing.T) {
	backend := &fakeBackend{text: "Rarity: Rare"}
	g := newTestGateway(t, backend, time.Second)

	before := time.Now()
	snap, err := g.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Rarity: Rare", snap.Text)
	assert.False(t, snap.CapturedAt.Before(before))
	assert.Equal(t, 1, backend.callCount())
}

func TestGateway_RetriesTransientDenial(t *testing.T) {
	backend := &fakeBackend{text: "hello", failures: []error{errBusy, errBusy}}
	g := newTestGateway(t, backend, 5*time.Second)

	start := time.Now()
	snap, err := g.Read(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "hello", snap.Text)
	assert.Equal(t, 3, backend.callCount())
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
}

func TestGateway_SurfacesAccessDenied(t *testing.T) {
	backend := &fakeBackend{failures: []error{errBusy, errBusy, errBusy}}
	g := newTestGateway(t, backend, 5*time.Second)

	_, err := g.Read(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccessDenied), "got %v", err)
	assert.Contains(t, err.Error(), errBusy.Error())
	assert.Equal(t, 3, backend.callCount())
}

func TestGateway_ClearRetries(t *testing.T) {
	backend := &fakeBackend{text: "stale", failures: []error{errBusy}}
	g := newTestGateway(t, backend, 5*time.Second)

	require.NoError(t, g.Clear(context.Background()))
	assert.Equal(t, 2, backend.callCount())

	snap, err := g.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Text)
}

func TestGateway_Timeout(t *testing.T) {
	backend := &fakeBackend{delay: 300 * time.Millisecond}
	g := newTestGateway(t, backend, 50*time.Millisecond)

	_, err := g.Read(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestGateway_TimeoutStopsRetrying(t *testing.T) {
	backend := &fakeBackend{failures: []error{errBusy, errBusy, errBusy}}
	g := newTestGateway(t, backend, 100*time.Millisecond)

	_, err := g.Read(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)

	// The worker abandons the backoff once the caller's deadline passes.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, backend.callCount())
}

func TestGateway_SerializesConcurrentCalls(t *testing.T) {
	backend := &fakeBackend{text: "x", delay: 10 * time.Millisecond}
	g := newTestGateway(t, backend, 5*time.Second)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Read(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, backend.callCount())
	assert.Equal(t, 1, backend.maxFlight)
}

func TestGateway_Closed(t *testing.T) {
	backend := &fakeBackend{}
	g := NewGateway(backend, DefaultPolicy, time.Second, testLogger())
	g.Close()
	g.Close() // idempotent

	_, err := g.Read(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, g.Clear(context.Background()), ErrClosed)
	assert.Equal(t, 0, backend.callCount())
}
