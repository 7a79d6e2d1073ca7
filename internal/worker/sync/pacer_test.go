package sync

import (
	"context"
	"testing"
	"time"
)

// TestPacer_FirstCallImmediate は最初の呼び出しが待機しないことを検証する。
func TestPacer_FirstCallImmediate(t *testing.T) {
	p := NewPacer(time.Second, time.Second, time.Second)

	start := time.Now()
	if err := p.WaitRequest(context.Background()); err != nil {
		t.Fatalf("WaitRequest() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first wait took %v, want immediate", elapsed)
	}
}

// TestPacer_SecondCallSpaced は連続する呼び出しの間に間隔が空くことを検証する。
func TestPacer_SecondCallSpaced(t *testing.T) {
	const interval = 50 * time.Millisecond
	p := NewPacer(interval, 0, 0)

	ctx := context.Background()
	if err := p.WaitRequest(ctx); err != nil {
		t.Fatalf("WaitRequest() error = %v", err)
	}

	start := time.Now()
	if err := p.WaitRequest(ctx); err != nil {
		t.Fatalf("WaitRequest() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval-10*time.Millisecond {
		t.Errorf("second wait took %v, want at least ~%v", elapsed, interval)
	}
}

// TestPacer_ZeroIntervalUnlimited は間隔0で待機が発生しないことを検証する。
func TestPacer_ZeroIntervalUnlimited(t *testing.T) {
	p := NewPacer(0, 0, 0)
	ctx := context.Background()

	start := time.Now()
	for range 10 {
		if err := p.WaitAccount(ctx); err != nil {
			t.Fatalf("WaitAccount() error = %v", err)
		}
		if err := p.WaitPost(ctx); err != nil {
			t.Fatalf("WaitPost() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("20 waits took %v, want no pacing", elapsed)
	}
}

// TestPacer_CancelledContext はキャンセル済みコンテキストで待機が
// エラーになることを検証する。
func TestPacer_CancelledContext(t *testing.T) {
	p := NewPacer(time.Hour, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.WaitRequest(ctx); err != nil {
		t.Fatalf("WaitRequest() error = %v", err)
	}

	cancel()
	if err := p.WaitRequest(ctx); err == nil {
		t.Error("WaitRequest() error = nil, want context error")
	}
}
