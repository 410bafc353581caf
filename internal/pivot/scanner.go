package pivot

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is the part of Machine the scanner drives.
type Expirer interface {
	ExpireDue(ctx context.Context) (*ExpiryReport, error)
}

// Scanner runs expiry passes on a fixed interval until its context ends.
type Scanner struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
}

func NewScanner(expirer Expirer, interval time.Duration, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scanner{expirer: expirer, interval: interval, logger: logger}
}

// Run performs one pass immediately and then one per tick. A failed pass is
// logged and retried on the next tick. Run returns when ctx is done.
func (s *Scanner) Run(ctx context.Context) error {
	s.pass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Scanner) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.expirer.ExpireDue(ctx); err != nil {
		s.logger.Error("expiry pass failed", "err", err)
	}
}
