package utils

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// BenchmarkRunner provides utilities for running benchmarks with metrics collection
type BenchmarkRunner struct {
	startTime      time.Time
	endTime        time.Time
	memStatsStart  runtime.MemStats
	memStatsEnd    runtime.MemStats
	goroutineStart int
	goroutineEnd   int

	operationCount int64
	errorCount     int64

	mu sync.RWMutex
}

// BenchmarkResults summarizes a run.
type BenchmarkResults struct {
	Duration        time.Duration
	Operations      int64
	Errors          int64
	OpsPerSecond    float64
	AllocatedBytes  uint64
	GoroutineGrowth int
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner() *BenchmarkRunner {
	return &BenchmarkRunner{}
}

// Start begins the benchmark measurement
func (br *BenchmarkRunner) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.startTime = time.Now()
	br.goroutineStart = runtime.NumGoroutine()
	runtime.GC()
	runtime.ReadMemStats(&br.memStatsStart)
}

// Stop ends the benchmark measurement
func (br *BenchmarkRunner) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.endTime = time.Now()
	br.goroutineEnd = runtime.NumGoroutine()
	runtime.GC()
	runtime.ReadMemStats(&br.memStatsEnd)
}

// IncrementOperations increments the operation counter
func (br *BenchmarkRunner) IncrementOperations(count int64) {
	atomic.AddInt64(&br.operationCount, count)
}

// IncrementErrors increments the error counter
func (br *BenchmarkRunner) IncrementErrors(count int64) {
	atomic.AddInt64(&br.errorCount, count)
}

// GetResults returns the benchmark results
func (br *BenchmarkRunner) GetResults() *BenchmarkResults {
	br.mu.RLock()
	defer br.mu.RUnlock()

	duration := br.endTime.Sub(br.startTime)
	operations := atomic.LoadInt64(&br.operationCount)
	var opsPerSecond float64
	if duration.Seconds() > 0 {
		opsPerSecond = float64(operations) / duration.Seconds()
	}
	return &BenchmarkResults{
		Duration:        duration,
		Operations:      operations,
		Errors:          atomic.LoadInt64(&br.errorCount),
		OpsPerSecond:    opsPerSecond,
		AllocatedBytes:  br.memStatsEnd.TotalAlloc - br.memStatsStart.TotalAlloc,
		GoroutineGrowth: br.goroutineEnd - br.goroutineStart,
	}
}

func (r *BenchmarkResults) String() string {
	return fmt.Sprintf("ops=%d errors=%d ops/s=%.0f alloc=%dB goroutines=%+d",
		r.Operations, r.Errors, r.OpsPerSecond, r.AllocatedBytes, r.GoroutineGrowth)
}

var categories = []string{"Electronics", "Sports", "Home", "Clothing", "Books"}

// GenerateProducts builds n deterministic products, newest first.
func GenerateProducts(n int) []domain.Product {
	rng := rand.New(rand.NewPCG(42, uint64(n)))
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{
			ID:          fmt.Sprintf("bench-%05d", i),
			Name:        fmt.Sprintf("Product %05d", rng.IntN(100000)),
			Description: "Benchmark product with a reasonably long description for text search",
			Category:    categories[i%len(categories)],
			Price:       decimal.New(int64(rng.IntN(50000)+100), -2),
			InStock:     i%4 != 0,
			Rating:      float64(rng.IntN(50)) / 10,
			Reviews:     rng.IntN(1000),
			CreatedAt:   base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

// GenerateOrderLines builds n order lines priced from 1.00 to n.00.
func GenerateOrderLines(n int) []domain.OrderLine {
	out := make([]domain.OrderLine, n)
	for i := range out {
		out[i] = domain.OrderLine{
			ProductID:   fmt.Sprintf("bench-%05d", i),
			ProductName: fmt.Sprintf("Product %05d", i),
			UnitPrice:   decimal.NewFromInt(int64(i + 1)),
			Quantity:    i%3 + 1,
		}
	}
	return out
}
