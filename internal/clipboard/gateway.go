package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shahar-caura/lurker/internal/provider"
)

var (
	// ErrAccessDenied means the clipboard stayed held by another process
	// for the whole retry budget.
	ErrAccessDenied = errors.New("clipboard: access denied")
	// ErrTimeout means the caller gave up waiting for the worker.
	ErrTimeout = errors.New("clipboard: timed out")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("clipboard: gateway closed")
)

// Snapshot is clipboard text as of CapturedAt.
type Snapshot struct {
	Text       string
	CapturedAt time.Time
}

type request struct {
	ctx    context.Context
	op     string
	run    func() error
	result chan error
}

// Gateway serializes every clipboard call onto one worker goroutine locked
// to its OS thread, so backends with thread affinity always see the same
// thread. Callers block until their call completes or times out.
type Gateway struct {
	backend provider.Clipboard
	policy  Policy
	timeout time.Duration
	logger  *slog.Logger

	requests  chan request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewGateway starts the worker. timeout bounds each call end to end; zero
// disables it.
func NewGateway(backend provider.Clipboard, policy Policy, timeout time.Duration, logger *slog.Logger) *Gateway {
	g := &Gateway{
		backend:  backend,
		policy:   policy,
		timeout:  timeout,
		logger:   logger,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go g.loop()
	return g
}

// Read returns the current clipboard text.
func (g *Gateway) Read(ctx context.Context) (Snapshot, error) {
	var text string
	err := g.do(ctx, "read", func() error {
		t, err := g.backend.ReadText()
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Text: text, CapturedAt: time.Now()}, nil
}

// Clear empties the clipboard.
func (g *Gateway) Clear(ctx context.Context) error {
	return g.do(ctx, "clear", g.backend.Clear)
}

// Close stops the worker after any in-progress call finishes.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() { close(g.quit) })
	<-g.done
}

func (g *Gateway) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(g.done)

	for {
		select {
		case <-g.quit:
			return
		case req := <-g.requests:
			req.result <- g.execute(req)
		}
	}
}

func (g *Gateway) execute(req request) error {
	err := Retry(req.ctx, g.policy, req.run, func(attempt int, err error) {
		g.logger.Warn("clipboard busy, retrying", "op", req.op, "attempt", attempt, "max", g.policy.Attempts, "error", err)
	})
	if err == nil {
		return nil
	}
	if req.ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, req.op, err)
	}
	return fmt.Errorf("%w: %s %v", ErrAccessDenied, req.op, err)
}

func (g *Gateway) do(ctx context.Context, op string, run func() error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := request{ctx: ctx, op: op, run: run, result: make(chan error, 1)}

	select {
	case <-g.quit:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: waiting for clipboard worker", ErrTimeout, op)
	case g.requests <- req:
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	}
}
