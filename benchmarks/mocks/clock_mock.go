package mocks

import (
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// StaticClock is a domain.Clock frozen at At whose timers never fire.
type StaticClock struct {
	At time.Time
}

func (c StaticClock) Now() time.Time { return c.At }

func (c StaticClock) AfterFunc(time.Duration, func()) domain.Timer { return noopTimer{} }

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }
