package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/lurker/internal/capture"
	"github.com/shahar-caura/lurker/internal/clipboard"
	"github.com/shahar-caura/lurker/internal/config"
	"github.com/shahar-caura/lurker/internal/event"
	"github.com/shahar-caura/lurker/internal/feed"
	"github.com/shahar-caura/lurker/internal/hook"
	"github.com/shahar-caura/lurker/internal/provider"
	"github.com/shahar-caura/lurker/internal/provider/desktop"
	"github.com/shahar-caura/lurker/internal/settings"
)

func newRunCmd(a *app) *cobra.Command {
	var serveFeed bool
	var feedAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start capturing and print events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("feed") {
				cfg.Feed.Enabled = serveFeed
			}
			if feedAddr != "" {
				cfg.Feed.Addr = feedAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCapture(ctx, a, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&serveFeed, "feed", false, "serve the HTTP event feed (overrides feed.enabled)")
	cmd.Flags().StringVar(&feedAddr, "feed-addr", "", "feed listen address (overrides feed.addr)")

	return cmd
}

func runCapture(ctx context.Context, a *app, out io.Writer) error {
	cfg, logger := a.cfg, a.logger

	ccfg, err := captureConfig(cfg)
	if err != nil {
		return err
	}

	clip, err := desktop.NewClipboard()
	if err != nil {
		return err
	}
	gateway := clipboard.NewGateway(clip, clipboardPolicy(cfg), cfg.Clipboard.Timeout.Duration, logger)
	listener := hook.NewListener(desktop.NewMouseHook(), clip, logger)

	watcher := settings.NewWatcher(cfg.Settings.Path, cfg.Capture.Enabled, logger)
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := watcher.Start(watchCtx); err != nil {
			logger.Warn("settings hot reload unavailable", "error", err)
		}
	}()

	bus := event.NewBus(logger)
	bus.SubscribeAll(jsonLines(out))

	// The feed outlives the orchestrator so in-flight captures still reach it.
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	feedDone := make(chan error, 1)
	if cfg.Feed.Enabled {
		srv := feed.New(feed.Options{
			Addr:      cfg.Feed.Addr,
			Version:   version,
			Retention: cfg.Feed.Retention.Duration,
			MaxEvents: cfg.Feed.MaxEvents,
		}, logger)
		go func() { feedDone <- srv.Run(feedCtx, bus) }()
	}

	orch := capture.New(ccfg, capture.Deps{
		Gateway:   gateway,
		Keyboard:  desktop.NewKeyboard(),
		Input:     listener,
		Publisher: bus,
		Enabled:   watcher.Enabled,
	}, logger)

	if err := orch.Start(ctx); err != nil {
		listener.Close()
		gateway.Close()
		return fmt.Errorf("starting capture: %w", err)
	}
	logger.Info("lurker running", "search_enabled", watcher.Enabled(), "feed", cfg.Feed.Enabled)

	var feedErr error
	select {
	case <-ctx.Done():
	case feedErr = <-feedDone:
		if feedErr != nil {
			feedErr = fmt.Errorf("event feed: %w", feedErr)
		}
	}

	orch.Shutdown()
	listener.Close()
	if cfg.Feed.Enabled && feedErr == nil {
		stopFeed()
		select {
		case err := <-feedDone:
			feedErr = err
		case <-time.After(10 * time.Second):
			logger.Warn("feed did not stop in time")
		}
	}
	gateway.Close()

	return feedErr
}

type jsonLine struct {
	Type  string      `json:"type"`
	At    time.Time   `json:"at"`
	Event event.Event `json:"event"`
}

// jsonLines writes each event as one JSON object per line.
func jsonLines(w io.Writer) event.Handler {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(jsonLine{Type: e.EventType(), At: e.OccurredAt(), Event: e})
	}
}

func captureConfig(cfg *config.Config) (capture.Config, error) {
	button, err := provider.ParseButton(cfg.Gesture.Button)
	if err != nil {
		return capture.Config{}, err
	}
	mods, err := provider.ParseModifiers(cfg.Gesture.Modifiers)
	if err != nil {
		return capture.Config{}, err
	}
	return capture.Config{
		Attempts:     cfg.Capture.Attempts,
		SettleDelay:  cfg.Capture.SettleDelay.Duration,
		RetryDelay:   cfg.Capture.RetryDelay.Duration,
		Button:       button,
		Modifiers:    mods,
		TriggerRate:  cfg.Capture.TriggerRate,
		TriggerBurst: cfg.Capture.TriggerBurst,
		ClearOnStart: cfg.Capture.ClearOnStart,
	}, nil
}

func clipboardPolicy(cfg *config.Config) clipboard.Policy {
	return clipboard.Policy{
		Attempts: cfg.Clipboard.Attempts,
		Backoff:  cfg.Clipboard.Backoff.Duration,
	}
}
