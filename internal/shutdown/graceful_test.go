package shutdown

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"easyapply/internal/logging"
)

type recordingStopper struct {
	name  string
	order *[]string
	err   error
}

func (r recordingStopper) Shutdown(ctx context.Context) error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestGroup_StopsAllInOrderAndReturnsFirstError(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	g := Group{
		recordingStopper{name: "web", order: &order},
		nil,
		recordingStopper{name: "cron", order: &order, err: boom},
		recordingStopper{name: "redis", order: &order, err: errors.New("later")},
	}
	if err := g.Shutdown(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if len(order) != 3 || order[0] != "web" || order[2] != "redis" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestGraceful_ReturnsWhenParentCancelled(t *testing.T) {
	var order []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Graceful(ctx, []os.Signal{os.Interrupt}, recordingStopper{name: "web", order: &order}, time.Second, logging.Nop())
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Graceful did not return after cancel")
	}
	if len(order) != 1 {
		t.Fatalf("expected one shutdown call, got %v", order)
	}
}
