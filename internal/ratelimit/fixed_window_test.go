package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:login", 2, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("second request denied")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("third request allowed over the limit")
	}
	// Another key has its own counter.
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("other key denied")
	}
}

func TestFixedWindowLimiterResets(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:login", 1, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	if !limiter.Allow("ip") {
		t.Fatal("first request denied")
	}
	if limiter.Allow("ip") {
		t.Fatal("second request allowed")
	}
	time.Sleep(60 * time.Millisecond)
	mr.FastForward(60 * time.Millisecond)
	if !limiter.Allow("ip") {
		t.Fatal("request denied after the window rolled over")
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:login", 5, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	mr.Close()
	if limiter.Allow("ip") {
		t.Fatal("limiter must deny when redis is unreachable")
	}
}

func TestFixedWindowLimiterValidation(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("", "", "p", 5, time.Minute); err == nil {
		t.Fatal("empty addr accepted")
	}
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "p", 0, time.Minute); err == nil {
		t.Fatal("zero limit accepted")
	}
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "p", 5, 0); err == nil {
		t.Fatal("zero window accepted")
	}
}

func TestFixedWindowLimiterNilReceiver(t *testing.T) {
	var limiter *FixedWindowLimiter
	if limiter.Allow("ip") {
		t.Fatal("nil limiter must deny")
	}
}
