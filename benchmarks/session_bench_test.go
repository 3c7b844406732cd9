package benchmarks

import (
	"context"
	"testing"
	"time"

	"gitlab.com/timkado/web/storefront-state/benchmarks/mocks"
	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/application"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/eventloop"
)

// BenchmarkSessionLoginLogout measures a login and logout cycle including persistence
func BenchmarkSessionLoginLogout(b *testing.B) {
	ctx := context.Background()
	kv := mocks.NewMockKVStore(0)
	clock := mocks.StaticClock{At: time.Now()}
	mgr := application.NewSessionManager(ctx, kv, clock, logger.NewNop(), "", time.Hour)
	user := domain.User{ID: "user-1", Email: "ada@example.com"}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := mgr.Login(ctx, user, "token-abc", time.Hour); err != nil {
			b.Fatal(err)
		}
		mgr.Logout(ctx)
	}
}

// BenchmarkSessionRestore measures restoring a persisted session at startup
func BenchmarkSessionRestore(b *testing.B) {
	ctx := context.Background()
	kv := mocks.NewMockKVStore(0)
	clock := mocks.StaticClock{At: time.Now()}
	seed := application.NewSessionManager(ctx, kv, clock, logger.NewNop(), "", time.Hour)
	if _, err := seed.Login(ctx, domain.User{ID: "user-1", Email: "ada@example.com"}, "token-abc", time.Hour); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		mgr := application.NewSessionManager(ctx, kv, clock, logger.NewNop(), "", time.Hour)
		if !mgr.IsAuthenticated() {
			b.Fatal("session was not restored")
		}
	}
}

// BenchmarkEventLoopDo measures the round trip of handing work to the state loop
func BenchmarkEventLoopDo(b *testing.B) {
	ctx := context.Background()
	loop := eventloop.New(logger.NewNop(), 1024)
	loop.Start(ctx)
	defer func() {
		loop.Stop()
		loop.Wait()
	}()

	counter := 0
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := loop.Do(ctx, func() { counter++ }); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
