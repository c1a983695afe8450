package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired durable sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartSessionSweeper 定期清理过期会话，直到 ctx 取消
func StartSessionSweeper(ctx context.Context, s Sweeper, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 启动时立即执行一次
	runSweep(ctx, s, log)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, s, log)
		case <-ctx.Done():
			log.Info("Session sweeper stopped")
			return
		}
	}
}

func runSweep(ctx context.Context, s Sweeper, log *zap.Logger) {
	n, err := s.Sweep(ctx)
	if err != nil {
		log.Error("Failed to clean up sessions", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("Expired sessions removed", zap.Int("count", n))
	}
}
