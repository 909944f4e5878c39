package cachetest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mycelian/rinku/internal/types"
)

// Cache is a RecordCache that can also store raw bytes, so the suite can
// plant undecodable snapshots.
type Cache interface {
	types.RecordCache
	PutRaw(key string, payload []byte) error
}

// Run exercises a compliance suite against a RecordCache implementation.
// makeCache must return a clean, isolated cache.
func Run(t *testing.T, makeCache func(t *testing.T) Cache) {
	t.Helper()

	c := makeCache(t)
	ctx := context.Background()

	keyA := "lovedones_" + uuid.NewString()
	keyB := "lovedones_" + uuid.NewString()

	// Missing partition loads empty, never nil.
	if got := c.Load(ctx, keyA); got == nil || len(got) != 0 {
		t.Fatalf("Load missing: want empty slice, got %#v", got)
	}

	familiar := "Annie"
	recs := []types.LovedOne{
		{ID: "AB12", FullName: "Ann", FamiliarName: &familiar, Relationship: "Mother", PhotoFileNames: []string{"u1_x.jpg"}},
		{ID: "cd34", FullName: "Bob", Relationship: "Brother", Enrolled: true, PhotoFileNames: []string{}},
	}
	if err := c.Save(ctx, keyA, recs); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := c.Load(ctx, keyA)
	if len(got) != 2 || got[0].ID != "AB12" || got[1].ID != "cd34" {
		t.Fatalf("Load after Save: order or content lost: %#v", got)
	}
	if got[0].FamiliarName == nil || *got[0].FamiliarName != "Annie" || got[0].MemoryPrompt != nil {
		t.Fatalf("Load after Save: optional fields not preserved: %#v", got[0])
	}
	if len(got[0].PhotoFileNames) != 1 || got[0].PhotoFileNames[0] != "u1_x.jpg" || !got[1].Enrolled {
		t.Fatalf("Load after Save: fields not preserved: %#v", got)
	}

	// Partitions are isolated.
	if other := c.Load(ctx, keyB); len(other) != 0 {
		t.Fatalf("partition leak: %#v", other)
	}

	// Save overwrites the whole snapshot.
	if err := c.Save(ctx, keyA, recs[1:]); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	if got := c.Load(ctx, keyA); len(got) != 1 || got[0].ID != "cd34" {
		t.Fatalf("Load after overwrite: %#v", got)
	}

	// Mutating a loaded slice does not leak into the cache.
	loaded := c.Load(ctx, keyA)
	loaded[0].FullName = "mutated"
	if again := c.Load(ctx, keyA); again[0].FullName != "Bob" {
		t.Fatalf("cache shares memory with caller: %#v", again)
	}

	// Undecodable bytes load as empty.
	if err := c.PutRaw(keyB, []byte("{not json")); err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
	if got := c.Load(ctx, keyB); got == nil || len(got) != 0 {
		t.Fatalf("Load corrupt: want empty slice, got %#v", got)
	}

	// Nil saves as empty.
	if err := c.Save(ctx, keyB, nil); err != nil {
		t.Fatalf("Save nil: %v", err)
	}
	if got := c.Load(ctx, keyB); got == nil || len(got) != 0 {
		t.Fatalf("Load after nil save: %#v", got)
	}
}
