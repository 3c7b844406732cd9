package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/logger"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

var testLogger = logger.NewNop()

// fakeClock is a manual domain.Clock. Timers fire synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that became due, in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

var errDiskFull = errors.New("disk full")

// failingKV fails every call selected by its flags and otherwise behaves like an empty store.
type failingKV struct {
	failGet bool
	failSet bool
	data    map[string][]byte
}

func newFailingKV(failGet, failSet bool) *failingKV {
	return &failingKV{failGet: failGet, failSet: failSet, data: make(map[string][]byte)}
}

func (f *failingKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, errDiskFull
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *failingKV) Set(_ context.Context, key string, value []byte) error {
	if f.failSet {
		return errDiskFull
	}
	f.data[key] = value
	return nil
}

func (f *failingKV) Delete(_ context.Context, key string) error {
	if f.failSet {
		return errDiskFull
	}
	delete(f.data, key)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ref(id, name, price string) domain.ProductRef {
	return domain.ProductRef{ID: id, Name: name, Price: dec(price), InStock: true}
}
