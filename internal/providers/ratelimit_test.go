package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterBurstThenBlock(t *testing.T) {
	r := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		if !r.TryConsume() {
			t.Fatalf("burst token %d refused", i+1)
		}
	}
	if r.TryConsume() {
		t.Error("bucket should be empty after burst")
	}

	// A token refills after 1/rps seconds.
	time.Sleep(250 * time.Millisecond)
	if !r.TryConsume() {
		t.Error("expected a refilled token")
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	r := NewRateLimiter(1)
	if !r.TryConsume() {
		t.Fatal("initial token refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Wait blocked %v past cancellation", elapsed)
	}
}

func TestRateLimiterRecordThrottle(t *testing.T) {
	r := NewRateLimiter(10)
	r.RecordThrottle()
	if r.TryConsume() {
		t.Error("bucket should be drained after a throttle")
	}
	status := r.Status()
	if status.LastThrottle.IsZero() {
		t.Error("LastThrottle not recorded")
	}
}
