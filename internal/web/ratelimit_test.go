package web

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(60, 2)
	defer rl.Stop()

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request inside the burst window should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("a different IP has its own bucket")
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(60, 1)
	defer rl.Stop()

	rl.allow("10.0.0.1")
	rl.evict(time.Now())
	if len(rl.visitors) != 1 {
		t.Fatalf("fresh visitor evicted, have %d", len(rl.visitors))
	}

	rl.evict(time.Now().Add(2 * visitorTTL))
	if len(rl.visitors) != 0 {
		t.Errorf("stale visitor kept, have %d", len(rl.visitors))
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	tests := []struct {
		perMinute int
		want      string
	}{
		{perMinute: 60, want: "2"},
		{perMinute: 30, want: "3"},
		{perMinute: 0, want: "60"},
	}
	for _, tt := range tests {
		rl := newRateLimiter(tt.perMinute, 1)
		if got := rl.retryAfter(); got != tt.want {
			t.Errorf("retryAfter(%d/min) = %q, want %q", tt.perMinute, got, tt.want)
		}
		rl.Stop()
		rl.Stop()
	}
}
