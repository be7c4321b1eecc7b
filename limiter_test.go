package spacetraveling

import (
	"testing"
	"time"
)

func TestFailureLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewFailureLimiter(2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.10"

	for i := 0; i < 2; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
		limiter.Record(ip)
	}
	if limiter.Check(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestFailureLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewFailureLimiter(1, time.Minute)
	defer limiter.Stop()
	now := time.Date(2021, 4, 19, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ip := "203.0.113.20"

	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected attempt inside the window to be blocked")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Check(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestFailureLimiterIsPerIP(t *testing.T) {
	limiter := NewFailureLimiter(1, time.Minute)
	defer limiter.Stop()

	limiter.Record("203.0.113.30")
	if !limiter.Check("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Check("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestFailureLimiterReset(t *testing.T) {
	limiter := NewFailureLimiter(1, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.40"

	limiter.Record(ip)
	limiter.Reset(ip)
	if !limiter.Check(ip) {
		t.Fatalf("expected ip to be allowed after Reset")
	}
	limiter.Stop()
}
