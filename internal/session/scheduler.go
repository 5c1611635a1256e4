package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/token"
)

// Scheduler keeps the access token fresh without operator interaction. It
// polls the token store on a fixed interval and triggers a silent refresh
// when the token is inside the refresh threshold. Transient failures are
// logged and retried on the next tick; only a rejected refresh token ends
// the session.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger

	// OnSessionExpired is invoked when a tick hits a terminal refresh
	// failure, after the session state has been cleared. Used to force a
	// redirect to the login view.
	OnSessionExpired func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a refresh scheduler for the given service.
func NewScheduler(svc *Service, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}
	return &Scheduler{svc: svc, interval: interval, log: log}
}

// Start launches the background loop. Call only after Bootstrap has
// completed so a timer-driven refresh never races the cold-start check.
// Starting an already-started scheduler is a no-op.
func (sc *Scheduler) Start(ctx context.Context) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	sc.done = make(chan struct{})

	go sc.run(ctx)
}

// Stop cancels the loop and waits for it to exit.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	cancel, done := sc.cancel, sc.done
	sc.cancel = nil
	sc.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (sc *Scheduler) run(ctx context.Context) {
	defer close(sc.done)

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	sc.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.tick(ctx)
		}
	}
}

func (sc *Scheduler) tick(ctx context.Context) {
	access, err := sc.svc.store.Access(ctx)
	if err != nil {
		if !errors.Is(err, token.ErrNotFound) {
			sc.log.Warn("refresh tick: token store read failed", zap.Error(err))
		}
		return
	}
	if !sc.svc.inspector.NeedsRefresh(access) {
		return
	}

	switch err := sc.svc.Refresh(ctx); {
	case err == nil:
	case errors.Is(err, ErrSessionExpired):
		sc.log.Warn("scheduled refresh rejected, session expired", zap.Error(err))
		if sc.OnSessionExpired != nil {
			sc.OnSessionExpired()
		}
	default:
		// Network blip or server error: keep the session and retry on the
		// next tick.
		sc.log.Warn("scheduled refresh failed, will retry", zap.Error(err))
	}
}
