package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePinger struct {
	up atomic.Bool
}

func (f *fakePinger) Ping(context.Context) error {
	if f.up.Load() {
		return nil
	}
	return errors.New("connection refused")
}

func TestBackendChecker_Transitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakePinger{}
	var recovered atomic.Int32
	hc := NewBackendChecker(p, zerolog.Nop(), 0, func(context.Context) { recovered.Add(1) })
	go hc.Start(ctx, 10*time.Millisecond)

	// Initially down
	time.Sleep(30 * time.Millisecond)
	if hc.IsHealthy() {
		t.Fatal("expected unhealthy before backend is up")
	}

	p.up.Store(true)
	waitTrue(t, func() bool { return hc.IsHealthy() })
	waitTrue(t, func() bool { return recovered.Load() == 1 })

	p.up.Store(false)
	waitTrue(t, func() bool { return !hc.IsHealthy() })

	p.up.Store(true)
	waitTrue(t, func() bool { return recovered.Load() == 2 })
}

func TestBackendChecker_FirstProbeUpIsNotARecovery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakePinger{}
	p.up.Store(true)
	var recovered atomic.Int32
	hc := NewBackendChecker(p, zerolog.Nop(), time.Second, func(context.Context) { recovered.Add(1) })
	go hc.Start(ctx, 10*time.Millisecond)

	waitTrue(t, func() bool { return hc.IsHealthy() })
	time.Sleep(50 * time.Millisecond)
	if n := recovered.Load(); n != 0 {
		t.Fatalf("onRecover called %d times, want 0", n)
	}
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
