package shutdown

import (
	"context"
	"os"
	"os/signal"
	"time"

	"easyapply/internal/logging"
)

type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Graceful blocks until one of signals arrives or parent is done, then stops s within timeout.
func Graceful(parent context.Context, signals []os.Signal, s Stoppable, timeout time.Duration, log *logging.Logger) {
	sigCtx, stop := signal.NotifyContext(parent, signals...)
	defer stop()

	<-sigCtx.Done()
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("graceful shutdown completed with error", "err", err)
	} else {
		log.Info("graceful shutdown completed successfully")
	}
}

// Group stops several components in order, returning the first error.
type Group []Stoppable

func (g Group) Shutdown(ctx context.Context) error {
	var first error
	for _, s := range g {
		if s == nil {
			continue
		}
		if err := s.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
