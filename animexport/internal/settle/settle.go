// Package settle decides when the editor has finished re-rendering after a
// timeline seek.
package settle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/animexport/animexport/internal/config"
	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/host"
)

// Waiter blocks until the host document reflects the last seek.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Fixed waits a constant delay.
type Fixed struct {
	Delay time.Duration
}

func (f Fixed) Wait(ctx context.Context) error {
	return sleepCtx(ctx, f.Delay)
}

// None returns at once. Used for replays, where frames are pre-settled.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }

// Fingerprint returns a fingerprint of the state being watched.
type Fingerprint func(ctx context.Context) (string, error)

// Stable polls Fingerprint every Interval until Quiet consecutive polls
// return the same value. When Max elapses first, the current state is
// accepted and a warning is logged.
type Stable struct {
	Fingerprint Fingerprint
	Interval    time.Duration
	Quiet       int
	Max         time.Duration
	Logger      *slog.Logger
}

func (s Stable) Wait(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	quiet := s.Quiet
	if quiet <= 0 {
		quiet = 1
	}

	prev, err := s.Fingerprint(ctx)
	if err != nil {
		return fmt.Errorf("settle: fingerprint: %w", err)
	}
	deadline := time.Now().Add(s.Max)
	same := 0
	for {
		if err := sleepCtx(ctx, s.Interval); err != nil {
			return err
		}
		cur, err := s.Fingerprint(ctx)
		if err != nil {
			return fmt.Errorf("settle: fingerprint: %w", err)
		}
		if cur == prev {
			same++
		} else {
			same = 0
			prev = cur
		}
		if same >= quiet {
			return nil
		}
		if s.Max > 0 && time.Now().After(deadline) {
			logger.Warn("settle: state still changing, sampling anyway", "max", s.Max)
			return nil
		}
	}
}

// Signal waits for an external readiness signal.
type Signal struct {
	Ready func(ctx context.Context) error
}

func (s Signal) Wait(ctx context.Context) error {
	if err := s.Ready(ctx); err != nil {
		return fmt.Errorf("settle: signal: %w", err)
	}
	return nil
}

// Frames waits for n rendered animation frames on the host.
func Frames(a host.FrameAwaiter, n int) Signal {
	return Signal{Ready: func(ctx context.Context) error { return a.AwaitFrames(ctx, n) }}
}

// SubtreeFingerprint hashes the subtree matched by selector in the host's
// current document.
func SubtreeFingerprint(h host.Host, selector string) Fingerprint {
	return func(ctx context.Context) (string, error) {
		doc, err := h.Document(ctx)
		if err != nil {
			return "", err
		}
		root, err := doc.QueryFirst(selector)
		if err != nil {
			return "", err
		}
		return domtree.Fingerprint(root)
	}
}

// New builds the Waiter selected by cfg.Mode. Frames mode requires h to
// implement host.FrameAwaiter.
func New(cfg config.SettleConfig, h host.Host, trackedRoot string, logger *slog.Logger) (Waiter, error) {
	switch cfg.Mode {
	case "", "fixed":
		return Fixed{Delay: cfg.Delay}, nil
	case "none":
		return None{}, nil
	case "stable":
		return Stable{
			Fingerprint: SubtreeFingerprint(h, trackedRoot),
			Interval:    cfg.Interval,
			Quiet:       cfg.Quiet,
			Max:         cfg.Max,
			Logger:      logger,
		}, nil
	case "frames":
		a, ok := h.(host.FrameAwaiter)
		if !ok {
			return nil, fmt.Errorf("settle: host %T cannot await frames", h)
		}
		return Frames(a, cfg.Frames), nil
	default:
		return nil, fmt.Errorf("settle: unknown mode %q", cfg.Mode)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
