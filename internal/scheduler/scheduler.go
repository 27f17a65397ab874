package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nativeiq/nativeiq/internal/agents"
	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/config"
	"github.com/nativeiq/nativeiq/internal/session"
)

// Loop drives the proactive agent on a fixed interval over every known
// user. It runs the perceive, desires, deliberate and act stages only;
// learn is not part of the scheduler path. The loop never terminates on
// its own: a failed tick is logged and retried after the error backoff.
type Loop struct {
	cfg       config.SchedulerConfig
	proactive bdi.Strategy
	sessions  session.Store
	window    *Window
	lock      *FileLock
	log       *slog.Logger
}

// NewLoop creates the proactive loop. A non-empty ActiveWindow in cfg
// restricts ticks to those hours; a non-empty LockPath serializes the
// loop across processes.
func NewLoop(cfg config.SchedulerConfig, proactive bdi.Strategy, sessions session.Store, log *slog.Logger) (*Loop, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	var window *Window
	if cfg.ActiveWindow != "" {
		w, err := ParseWindow(cfg.ActiveWindow)
		if err != nil {
			return nil, fmt.Errorf("scheduler active window: %w", err)
		}
		window = w
	}
	var lock *FileLock
	if cfg.LockPath != "" {
		lock = NewFileLock(cfg.LockPath)
	}

	return &Loop{
		cfg:       cfg,
		proactive: proactive,
		sessions:  sessions,
		window:    window,
		lock:      lock,
		log:       log,
	}, nil
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("Proactive loop started", "tick", l.cfg.TickInterval)
	timer := time.NewTimer(l.cfg.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("Proactive loop stopped")
			return ctx.Err()
		case now := <-timer.C:
			delay := l.cfg.TickInterval
			if err := l.tick(ctx, now); err != nil {
				l.log.Warn("Proactive tick failed", "error", err)
				delay = l.cfg.ErrorBackoff
			}
			timer.Reset(delay)
		}
	}
}

func (l *Loop) tick(ctx context.Context, now time.Time) error {
	if l.window != nil && !l.window.Contains(now) {
		return nil
	}
	if l.lock != nil {
		acquired, err := l.lock.TryLock()
		if err != nil {
			return fmt.Errorf("scheduler lock: %w", err)
		}
		if !acquired {
			l.log.Debug("Proactive tick skipped: lock held by another process")
			return nil
		}
		defer l.lock.Unlock()
	}

	var firstErr error
	for _, info := range l.sessions.List() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := l.runUser(ctx, info.Key); err != nil {
			l.log.Warn("Proactive run failed", "user", info.Key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// runUser executes one proactive pass for a single user.
func (l *Loop) runUser(ctx context.Context, userID string) error {
	agentCtx := map[string]any{
		agents.KeyUserID:  userID,
		agents.KeyChannel: "scheduler",
	}

	beliefs, err := l.proactive.Perceive(ctx, nil, agentCtx)
	if err != nil {
		return fmt.Errorf("perceive: %w", err)
	}
	desires, err := l.proactive.UpdateDesires(ctx, beliefs, agentCtx)
	if err != nil {
		return fmt.Errorf("desires: %w", err)
	}
	intentions, err := l.proactive.Deliberate(ctx, beliefs, desires, nil)
	if err != nil {
		return fmt.Errorf("deliberate: %w", err)
	}
	for _, intention := range intentions {
		if _, err := l.proactive.Act(ctx, intention, agentCtx); err != nil {
			return fmt.Errorf("act: %w", err)
		}
	}
	return nil
}
