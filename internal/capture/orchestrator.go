package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/shahar-caura/lurker/internal/classify"
	"github.com/shahar-caura/lurker/internal/clipboard"
	"github.com/shahar-caura/lurker/internal/event"
	"github.com/shahar-caura/lurker/internal/hook"
	"github.com/shahar-caura/lurker/internal/item"
	"github.com/shahar-caura/lurker/internal/provider"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("capture: orchestrator already started")

// Gateway is the clipboard access the orchestrator needs.
type Gateway interface {
	Read(ctx context.Context) (clipboard.Snapshot, error)
	Clear(ctx context.Context) error
}

// Publisher receives emitted events. Publish must not retain the caller.
type Publisher interface {
	Publish(e event.Event)
}

// Subscriber is the input hook source.
type Subscriber interface {
	Subscribe(onClick func(provider.MouseClick), onChange func(provider.ClipboardChange)) (hook.Handle, error)
	Unsubscribe(h hook.Handle)
}

// Config tunes the capture pipeline.
type Config struct {
	Attempts     int           // reads per gesture while the item is unidentified
	SettleDelay  time.Duration // wait after the copy keystroke
	RetryDelay   time.Duration // wait between reads
	Button       provider.Button
	Modifiers    provider.Modifier // all must be held
	TriggerRate  float64           // gestures per second; zero is unlimited
	TriggerBurst int               // used only with a positive TriggerRate
	ClearOnStart bool
}

// DefaultConfig is a left click with Ctrl+Shift held, two reads 50ms apart.
// Every qualifying gesture is captured; rate limiting is opt-in.
func DefaultConfig() Config {
	return Config{
		Attempts:     2,
		SettleDelay:  20 * time.Millisecond,
		RetryDelay:   50 * time.Millisecond,
		Button:       provider.ButtonLeft,
		Modifiers:    provider.ModCtrl | provider.ModShift,
		TriggerRate:  0,
		TriggerBurst: 1,
		ClearOnStart: true,
	}
}

// Qualifies reports whether click is the capture gesture.
func (c Config) Qualifies(click provider.MouseClick) bool {
	return click.Button == c.Button && click.Modifiers.Has(c.Modifiers)
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Gateway   Gateway
	Keyboard  provider.Keyboard
	Input     Subscriber
	Publisher Publisher
	// Enabled is read once per gesture. Nil means always enabled.
	Enabled func() bool
}

type input struct {
	click  *provider.MouseClick
	change *provider.ClipboardChange
}

// Orchestrator turns capture gestures and clipboard changes into events.
// It owns the last-seen text used for deduplication and the hook
// subscription; Shutdown releases both.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	limiter *rate.Limiter

	lastMu   sync.Mutex
	lastText string

	gestures     atomic.Int64
	items        atomic.Int64
	trades       atomic.Int64
	abandoned    atomic.Int64
	deduplicated atomic.Int64
	dropped      atomic.Int64

	lifeMu   sync.Mutex
	started  bool
	stopped  bool
	handle   hook.Handle
	taskCtx  context.Context
	inbox    chan input
	quit     chan struct{}
	loopDone chan struct{}
	tasks    conc.WaitGroup
}

// New builds an orchestrator. Call Start to begin listening.
func New(cfg Config, deps Deps, logger *slog.Logger) *Orchestrator {
	limit := rate.Limit(cfg.TriggerRate)
	if cfg.TriggerRate <= 0 {
		limit = rate.Inf
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if deps.Enabled == nil {
		deps.Enabled = func() bool { return true }
	}
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, max(cfg.TriggerBurst, 1)),
		inbox:    make(chan input, 64),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start clears the clipboard if configured, subscribes to input and runs
// the event loop. ctx supplies values to capture tasks; cancelling it does
// not interrupt them. An orchestrator can be started once.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.started {
		return ErrAlreadyStarted
	}

	if o.cfg.ClearOnStart {
		if err := o.deps.Gateway.Clear(ctx); err != nil {
			o.logger.Warn("clearing clipboard at start", "error", err)
		}
	}

	h, err := o.deps.Input.Subscribe(o.onClick, o.onChange)
	if err != nil {
		return fmt.Errorf("subscribing to input: %w", err)
	}

	o.handle = h
	o.started = true
	o.taskCtx = context.WithoutCancel(ctx)
	go o.run()

	o.logger.Info("capture started", "button", o.cfg.Button.String(), "modifiers", o.cfg.Modifiers.String(), "attempts", o.cfg.Attempts)
	return nil
}

// Shutdown stops new triggers, then waits for in-flight captures to reach
// Emit or Abandon. Safe to call more than once.
func (o *Orchestrator) Shutdown() {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if !o.started || o.stopped {
		return
	}
	o.stopped = true

	o.deps.Input.Unsubscribe(o.handle)
	close(o.quit)
	<-o.loopDone

	if r := o.tasks.WaitAndRecover(); r != nil {
		o.logger.Error("capture task panicked", "panic", r.Value, "stack", string(r.Stack))
	}
	o.logger.Info("capture stopped", "stats", o.Stats())
}

// Stats returns a snapshot of the counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Gestures:     o.gestures.Load(),
		Items:        o.items.Load(),
		Trades:       o.trades.Load(),
		Abandoned:    o.abandoned.Load(),
		Deduplicated: o.deduplicated.Load(),
		Dropped:      o.dropped.Load(),
	}
}

func (o *Orchestrator) onClick(c provider.MouseClick) {
	o.enqueue(input{click: &c})
}

func (o *Orchestrator) onChange(c provider.ClipboardChange) {
	o.enqueue(input{change: &c})
}

// enqueue never blocks the hook's dispatch goroutine.
func (o *Orchestrator) enqueue(in input) {
	select {
	case o.inbox <- in:
	case <-o.quit:
	default:
		o.dropped.Add(1)
		o.logger.Warn("input queue full, dropping event")
	}
}

func (o *Orchestrator) run() {
	defer close(o.loopDone)
	for {
		select {
		case <-o.quit:
			return
		case in := <-o.inbox:
			switch {
			case in.click != nil:
				o.trigger(*in.click)
			case in.change != nil:
				o.Observe(*in.change)
			}
		}
	}
}

func (o *Orchestrator) trigger(c provider.MouseClick) {
	if !o.cfg.Qualifies(c) {
		return
	}
	if !o.deps.Enabled() {
		o.logger.Debug("capture disabled, ignoring gesture")
		return
	}
	if !o.limiter.Allow() {
		o.dropped.Add(1)
		o.logger.Debug("gesture rate limited")
		return
	}

	ctx := o.taskCtx
	o.tasks.Go(func() { o.Capture(ctx) })
}

// Capture runs one gesture: send the copy keystroke, let the clipboard
// settle, then read and validate up to Attempts times while the item is
// still unidentified. It always ends in Emit or Abandon.
func (o *Orchestrator) Capture(ctx context.Context) Outcome {
	o.gestures.Add(1)
	o.transition(StateIdle, StateAwaitingCopy, 1)

	if err := o.deps.Keyboard.SendCopy(); err != nil {
		return o.abandon(1, ReasonCopyFailed, err)
	}
	if err := sleep(ctx, o.cfg.SettleDelay); err != nil {
		return o.abandon(1, ReasonCancelled, err)
	}

	for attempt := 1; ; attempt++ {
		snap, err := o.deps.Gateway.Read(ctx)
		if err != nil {
			return o.abandon(attempt, ReasonReadFailed, err)
		}
		o.transition(StateAwaitingCopy, StateValidating, attempt)

		out, retry := o.validate(ctx, snap, attempt)
		if !retry {
			return out
		}
		if attempt >= o.cfg.Attempts {
			return o.abandon(attempt, ReasonUnidentified, nil)
		}

		o.transition(StateValidating, StateRetry, attempt)
		if err := sleep(ctx, o.cfg.RetryDelay); err != nil {
			return o.abandon(attempt, ReasonCancelled, err)
		}
		o.transition(StateRetry, StateAwaitingCopy, attempt+1)
	}
}

// validate classifies one read. retry is true for an unidentified item.
func (o *Orchestrator) validate(ctx context.Context, snap clipboard.Snapshot, attempt int) (out Outcome, retry bool) {
	switch classify.Classify(snap.Text) {
	case classify.ItemShaped:
		it, err := item.Parse(snap.Text)
		if err != nil {
			return o.abandon(attempt, ReasonParseFailed, err), false
		}
		if !it.Identified {
			return Outcome{}, true
		}
		o.remember(snap.Text)
		return o.emit(ctx, event.ItemCaptured{Item: it, At: snap.CapturedAt}, attempt, true), false

	case classify.TradeShaped:
		if !o.remember(snap.Text) {
			o.deduplicated.Add(1)
			return o.abandon(attempt, ReasonDuplicate, nil), false
		}
		e := event.TradeOfferDetected{Offer: classify.TradeOffer{Raw: snap.Text}, At: snap.CapturedAt}
		return o.emit(ctx, e, attempt, true), false

	default:
		return o.abandon(attempt, ReasonUnrecognized, nil), false
	}
}

// Observe handles an organic clipboard change. Only trade text is emitted,
// and only when it differs from the last text seen on either path. The
// event carries the change's timestamp, or now when it has none.
func (o *Orchestrator) Observe(change provider.ClipboardChange) Outcome {
	text := change.Text
	if text == "" {
		return Outcome{State: StateAbandon, Reason: ReasonEmpty}
	}
	if !o.remember(text) {
		o.deduplicated.Add(1)
		return Outcome{State: StateAbandon, Reason: ReasonDuplicate}
	}
	if classify.Classify(text) != classify.TradeShaped {
		return Outcome{State: StateAbandon, Reason: ReasonUnrecognized}
	}

	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	e := event.TradeOfferDetected{Offer: classify.TradeOffer{Raw: text}, At: at}
	return o.emit(context.Background(), e, 0, false)
}

// remember stores text as the last seen and reports whether it changed.
func (o *Orchestrator) remember(text string) bool {
	o.lastMu.Lock()
	defer o.lastMu.Unlock()

	if text == o.lastText {
		return false
	}
	o.lastText = text
	return true
}

func (o *Orchestrator) emit(ctx context.Context, e event.Event, attempt int, gesture bool) Outcome {
	switch ev := e.(type) {
	case event.ItemCaptured:
		o.items.Add(1)
		o.logger.Info("item captured", "name", ev.Item.Name, "rarity", ev.Item.Rarity, "attempt", attempt)
	case event.TradeOfferDetected:
		o.trades.Add(1)
		o.logger.Info("trade offer detected", "gesture", gesture)
	}
	o.transition(StateValidating, StateEmit, attempt)
	o.deps.Publisher.Publish(e)

	if gesture {
		if err := o.deps.Gateway.Clear(ctx); err != nil {
			o.logger.Warn("clearing clipboard after capture", "error", err)
		}
	}
	return Outcome{State: StateEmit, Attempts: attempt, Event: e}
}

func (o *Orchestrator) abandon(attempt int, reason string, err error) Outcome {
	o.abandoned.Add(1)
	args := []any{"attempt", attempt, "reason", reason}
	if err != nil {
		args = append(args, "error", err)
	}
	o.logger.Debug("capture abandoned", args...)
	return Outcome{State: StateAbandon, Reason: reason, Attempts: attempt, Err: err}
}

func (o *Orchestrator) transition(from, to State, attempt int) {
	o.logger.Debug("capture transition", "from", from, "to", to, "attempt", attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
