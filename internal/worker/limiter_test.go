package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/findorigin/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestNewLimiterFromConfig(t *testing.T) {
	if l := NewLimiterFromConfig(model.RateLimitingConfig{RequestsPerSecond: 0, BurstSize: 5}); l != nil {
		t.Error("expected nil limiter when disabled")
	}
	if l := NewLimiterFromConfig(model.RateLimitingConfig{RequestsPerSecond: 2, BurstSize: 3}); l == nil || l.defaultBurst != 3 {
		t.Errorf("unexpected limiter %+v", l)
	}
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background(), "https://t.me/c/1"); err != nil {
		t.Errorf("nil limiter should not fail: %v", err)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://t.me/a/1"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(short, "https://T.ME/b/2"); err == nil {
		t.Error("expected the same host to be exhausted regardless of case and path")
	}
	if err := limiter.Wait(short, "https://example.com"); err != nil {
		t.Errorf("expected other host to pass, got %v", err)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	_ = limiter.Wait(context.Background(), "https://t.me/a/1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "https://t.me/a/2"); err == nil {
		t.Error("expected wait to fail once the context cannot cover the delay")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://Example.com:8080/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
