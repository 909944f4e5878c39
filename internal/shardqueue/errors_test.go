package shardqueue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestQueueFullError_Matching(t *testing.T) {
	var err error = &QueueFullError{Shard: 3, Length: 10, Capacity: 16}
	if msg := err.Error(); !strings.Contains(msg, "3") || !strings.Contains(msg, "cap=16") {
		t.Fatalf("error string lacks diagnostics: %q", msg)
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatal("expected errors.Is(err, ErrQueueFull)")
	}
	if errors.Is(err, ErrExecutorClosed) {
		t.Fatal("unexpected match with ErrExecutorClosed")
	}
}

func TestBarrier_ReportsFullShard(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer ex.Stop()

	release := blockShard(t, ex, "rec")
	defer release()
	if err := ex.Submit(context.Background(), "rec", JobFunc(noop)); err != nil {
		t.Fatalf("fill queue: %v", err)
	}

	err := ex.Barrier(context.Background(), "rec")
	var full *QueueFullError
	if !errors.As(err, &full) {
		t.Fatalf("expected *QueueFullError, got %v", err)
	}
	if full.Shard != 0 || full.Length != 1 || full.Capacity != 1 {
		t.Fatalf("unexpected diagnostics: %+v", full)
	}
}

func TestBarrier_AfterStop(t *testing.T) {
	ex := NewShardExecutor(Config{Shards: 1})
	ex.Stop()
	if err := ex.Barrier(context.Background(), "rec"); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}
