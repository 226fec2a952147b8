package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
)

func TestBackoff(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:       6,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2,
	}
	want := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoffJitterStaysInBand(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, BackoffMultiplier: 2, Jitter: 0.5}
	for i := 0; i < 100; i++ {
		got := p.Backoff(2)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("Backoff with jitter = %v", got)
		}
	}
}

func TestRetryPolicyNormalized(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Minute, MaxBackoff: time.Second, Jitter: 3}.normalized()
	if p.MaxAttempts != 1 || p.BackoffMultiplier != 1 || p.InitialBackoff != time.Second || p.Jitter != 1 {
		t.Fatalf("normalized = %+v", p)
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleepCtx = %v", err)
	}
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep = %v", err)
	}
}

func TestIDGeneratorMonotonicPerPayer(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	gen := NewIDGenerator(func() time.Time { return fixed })
	a, b := wire.NewEntityID(0, 0, 2), wire.NewEntityID(0, 0, 3)

	prev := gen.Next(a)
	for i := 0; i < 50; i++ {
		next := gen.Next(a)
		if !prev.ValidStart.Before(next.ValidStart) {
			t.Fatalf("valid start did not advance: %s then %s", prev, next)
		}
		if next.Payer != a || next.Scheduled || next.Nonce != 0 {
			t.Fatalf("unexpected id %s", next)
		}
		prev = next
	}

	if other := gen.Next(b); other.ValidStart != wire.TimestampFromTime(fixed) {
		t.Fatalf("payers must be independent, got %s", other)
	}
}

func TestIDGeneratorConcurrentUnique(t *testing.T) {
	gen := NewIDGenerator(nil)
	payer := wire.NewEntityID(0, 0, 2)

	var mu sync.Mutex
	seen := make(map[wire.TransactionID]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Next(payer)
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Fatalf("unique ids = %d, want 800", len(seen))
	}
}

func TestCircuitBreakerSkipsFailingEndpoint(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	health := newEndpointHealth(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute}, clock)
	eps := []string{"a", "b"}

	health.breaker("a").RecordFailure()
	if got := health.healthy(eps); len(got) != 2 {
		t.Fatalf("one failure should not open the circuit: %v", got)
	}
	health.breaker("a").RecordFailure()
	if got := health.healthy(eps); len(got) != 1 || got[0] != "b" {
		t.Fatalf("healthy = %v, want [b]", got)
	}
	if health.breaker("a").State() != CircuitOpen {
		t.Fatal("breaker should be open")
	}

	health.breaker("b").RecordFailure()
	health.breaker("b").RecordFailure()
	if got := health.healthy(eps); len(got) != 2 {
		t.Fatalf("all open should fall back to the full pool: %v", got)
	}

	now = now.Add(2 * time.Minute)
	if err := health.breaker("a").Allow(); err != nil {
		t.Fatalf("Allow after timeout = %v", err)
	}
	if health.breaker("a").State() != CircuitHalfOpen {
		t.Fatal("breaker should be half-open")
	}
	health.breaker("a").RecordSuccess()
	if health.breaker("a").State() != CircuitClosed {
		t.Fatal("breaker should close after a success")
	}
}
