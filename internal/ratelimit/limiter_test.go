package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestNewRateLimiterStartsFull verifies the bucket starts at full capacity.
func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 10.0)
	tokens := rl.GetCurrentTokens()
	if tokens < 9.9 { // Allow small float imprecision
		t.Errorf("expected ~10 tokens, got %.2f", tokens)
	}
}

// TestTryAcquireConsumesToken verifies token consumption.
func TestTryAcquireConsumesToken(t *testing.T) {
	rl := NewRateLimiter(1.0, 5.0)

	// Should succeed 5 times (burst capacity)
	for i := 0; i < 5; i++ {
		if !rl.tryAcquire() {
			t.Fatalf("tryAcquire() failed on attempt %d", i+1)
		}
	}

	// 6th should fail (bucket exhausted, no time for refill)
	if rl.tryAcquire() {
		t.Error("tryAcquire() should fail when bucket is empty")
	}
}

// TestTokenRefill verifies tokens refill over time.
func TestTokenRefill(t *testing.T) {
	rl := NewRateLimiter(10.0, 10.0) // 10 tokens/sec

	// Drain all tokens
	for i := 0; i < 10; i++ {
		rl.tryAcquire()
	}

	// Wait for partial refill
	time.Sleep(200 * time.Millisecond) // Should refill ~2 tokens

	tokens := rl.GetCurrentTokens()
	if tokens < 1.5 || tokens > 3.0 {
		t.Errorf("expected ~2 tokens after 200ms at 10/sec, got %.2f", tokens)
	}
}

// TestTokenRefillCapsAtMax verifies tokens don't exceed max capacity.
func TestTokenRefillCapsAtMax(t *testing.T) {
	rl := NewRateLimiter(100.0, 5.0) // Very fast refill, low max

	// Wait a bit to accumulate
	time.Sleep(100 * time.Millisecond)

	tokens := rl.GetCurrentTokens()
	if tokens > 5.1 { // Allow tiny float imprecision
		t.Errorf("tokens should cap at 5, got %.2f", tokens)
	}
}

// TestWaitBlocksUntilTokenAvailable verifies Wait blocks and then succeeds.
func TestWaitBlocksUntilTokenAvailable(t *testing.T) {
	rl := NewRateLimiter(10.0, 1.0) // 10 tokens/sec, 1 max

	// Consume the only token
	rl.tryAcquire()

	// Wait should block briefly then succeed
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	// Should have waited ~100ms (1 token / 10 tokens/sec)
	if elapsed < 50*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("Wait() took %v, expected ~100ms", elapsed)
	}
}

// TestWaitRespectsContextCancellation verifies Wait returns on context cancel.
func TestWaitRespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.1, 1.0) // Very slow refill

	// Consume the only token
	rl.tryAcquire()

	// Cancel context quickly
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	if err == nil {
		t.Error("Wait() should return error when context is cancelled")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

// TestBurstBehavior verifies rapid consumption depletes the bucket.
func TestBurstBehavior(t *testing.T) {
	rl := NewRateLimiter(1.0, 20.0) // 1/sec refill, 20 burst capacity

	// Rapid burst should get all 20
	for i := 0; i < 20; i++ {
		if !rl.tryAcquire() {
			t.Fatalf("burst failed at token %d", i+1)
		}
	}

	// Next should fail
	if rl.tryAcquire() {
		t.Error("should fail after burst exhaustion")
	}
}

// TestDrainEmptiesBucket verifies Drain sets tokens to zero.
func TestDrainEmptiesBucket(t *testing.T) {
	rl := NewRateLimiter(1.0, 100.0)

	// Verify bucket starts full
	if tokens := rl.GetCurrentTokens(); tokens < 99.0 {
		t.Fatalf("expected ~100 tokens at start, got %.2f", tokens)
	}

	rl.Drain()

	// Should be zero (allow tiny refill from time between Drain and GetCurrentTokens)
	tokens := rl.GetCurrentTokens()
	if tokens > 0.1 {
		t.Errorf("after Drain: tokens = %.2f, want ~0", tokens)
	}
}

// TestDrainCausesWaitToBlock verifies that after Drain, Wait blocks until refill.
func TestDrainCausesWaitToBlock(t *testing.T) {
	rl := NewRateLimiter(10.0, 10.0) // 10/sec refill

	rl.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Wait() after Drain returned error: %v", err)
	}

	// Should have waited ~100ms for 1 token at 10/sec
	if elapsed < 50*time.Millisecond {
		t.Errorf("Wait() after Drain completed too quickly: %v", elapsed)
	}
}

// TestNotifyFiresBeforeLongWait verifies the warn callback fires when the
// projected wait exceeds the warning threshold.
func TestNotifyFiresBeforeLongWait(t *testing.T) {
	rl := NewRateLimiter(0.2, 1.0) // 1 token per 5s

	var mu sync.Mutex
	var gotLevel, gotMsg string
	rl.SetNotifyFunc(func(level, message string) {
		mu.Lock()
		defer mu.Unlock()
		gotLevel = level
		gotMsg = message
	})

	// Consume the only token so the next Wait projects a ~5s delay
	rl.tryAcquire()

	// The warning is emitted before blocking, so a short deadline is enough
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Wait() error = %v, want context.DeadlineExceeded", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotLevel != "warn" {
		t.Errorf("notify level = %q, want %q", gotLevel, "warn")
	}
	if gotMsg == "" {
		t.Error("notify message was empty")
	}
}

// TestNotifySilentOnShortWait verifies no callback fires for sub-threshold waits.
func TestNotifySilentOnShortWait(t *testing.T) {
	rl := NewRateLimiter(100.0, 1.0) // ~10ms per token

	called := false
	rl.SetNotifyFunc(func(level, message string) {
		called = true
	})

	rl.tryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}

	if called {
		t.Error("notify callback should not fire for a ~10ms wait")
	}
}

// TestNotifyThrottling verifies at most one notification per NotifyMinInterval.
func TestNotifyThrottling(t *testing.T) {
	rl := NewRateLimiter(1.0, 1.0)

	callCount := 0
	rl.SetNotifyFunc(func(level, message string) {
		callCount++
	})

	rl.notify("warn", 3*time.Second)
	rl.notify("warn", 3*time.Second)
	rl.notify("warn", 3*time.Second)

	if callCount != 1 {
		t.Errorf("callCount = %d, want 1 (should be throttled)", callCount)
	}
}

// TestNotifyNilFuncSafe verifies no panic when no callback is registered.
func TestNotifyNilFuncSafe(t *testing.T) {
	rl := NewRateLimiter(1.0, 1.0)
	// notifyFn deliberately not set

	// Should not panic
	rl.notify("warn", 3*time.Second)
}

// TestConcurrentAccess verifies thread safety under contention.
func TestConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(100.0, 50.0) // Fast refill

	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Launch 20 goroutines all trying to acquire tokens
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := rl.Wait(ctx); err != nil {
					return // Context cancelled, that's fine
				}
			}
		}()
	}

	wg.Wait()
	// If we get here without deadlock or panic, the test passes
}

// TestConcurrentDrainAndWait verifies no race between Drain and Wait.
func TestConcurrentDrainAndWait(t *testing.T) {
	rl := NewRateLimiter(100.0, 100.0)

	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	// Waiters
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := rl.Wait(ctx); err != nil {
					return
				}
			}
		}()
	}

	// Drainer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			rl.Drain()
			time.Sleep(10 * time.Millisecond)
		}
	}()

	wg.Wait()
}
