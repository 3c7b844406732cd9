package safego

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
)

func TestExecuteRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := logger.NewZapLogger(zap.New(core))

	done := make(chan struct{})
	Execute(context.Background(), log, "worker", func() {
		defer close(done)
		panic("boom")
	})
	<-done

	// the deferred close runs before Recover logs, so wait for the entry
	deadline := time.Now().Add(time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Message, "worker") {
		t.Fatalf("message %q does not name the goroutine", entries[0].Message)
	}
	if got := entries[0].ContextMap()["panic_info"]; got != "boom" {
		t.Fatalf("panic_info = %v", got)
	}
}

func TestRecoverWithCancelledContext(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := logger.NewZapLogger(zap.New(core))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	func() {
		defer Recover(ctx, log, "task")
		panic("late")
	}()

	if logs.Len() != 1 {
		t.Fatalf("got %d log entries, want 1", logs.Len())
	}
}
