package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RevocationSweeper drops revocation records whose tokens have expired.
type RevocationSweeper interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// ResetTokenSweeper clears reset token slots that expired before a cutoff.
type ResetTokenSweeper interface {
	ClearExpiredResetTokens(ctx context.Context, before time.Time) (int64, error)
}

// CleanupManager periodically sweeps expired revocations and reset tokens.
type CleanupManager struct {
	revocations RevocationSweeper
	resets      ResetTokenSweeper
	logger      *slog.Logger
	interval    time.Duration
	retention   time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	revocations RevocationSweeper,
	resets ResetTokenSweeper,
	logger *slog.Logger,
	interval time.Duration,
	resetRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		revocations: revocations,
		resets:      resets,
		logger:      logger,
		interval:    interval,
		retention:   resetRetention,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start runs a sweep immediately and then once per interval until ctx is
// cancelled or Stop is called.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if cm.revocations != nil {
		rows, err := cm.revocations.CleanupExpiredTokens(cleanupCtx)
		if err != nil {
			cm.logger.Error("failed to cleanup expired revocations", slog.Any("error", err))
		} else if rows > 0 {
			cm.logger.Info("expired revocations removed", slog.Int64("rows_deleted", rows))
		}
	}

	if cm.resets != nil {
		// Slots inside the retention window stay, so a late click on an
		// expired link is still answered with "expired".
		rows, err := cm.resets.ClearExpiredResetTokens(cleanupCtx, cm.now().Add(-cm.retention))
		if err != nil {
			cm.logger.Error("failed to clear expired reset tokens", slog.Any("error", err))
		} else if rows > 0 {
			cm.logger.Info("expired reset tokens cleared", slog.Int64("rows_cleared", rows))
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
