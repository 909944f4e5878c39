package cache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/rinku/internal/cache/cachetest"
	"github.com/mycelian/rinku/internal/types"
)

func TestMemory_Compliance(t *testing.T) {
	cachetest.Run(t, func(t *testing.T) cachetest.Cache {
		return NewMemory(zerolog.Nop())
	})
}

func TestSQLite_Compliance(t *testing.T) {
	cachetest.Run(t, func(t *testing.T) cachetest.Cache {
		c, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, "lovedones_u1", []types.LovedOne{{ID: "ab12", FullName: "Ann", Relationship: "Mother"}}))
	require.NoError(t, c.Close())

	c2, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()
	got := c2.Load(ctx, "lovedones_u1")
	require.Len(t, got, 1)
	assert.Equal(t, "ab12", got[0].ID)
	assert.NotNil(t, got[0].PhotoFileNames)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "lovedones_guest", PartitionKey(DefaultPrefix, nil))
	assert.Equal(t, "lovedones_guest", PartitionKey(DefaultPrefix, &types.Identity{}))
	assert.Equal(t, "lovedones_u-42", PartitionKey(DefaultPrefix, &types.Identity{ID: "u-42"}))
	assert.Equal(t, "p_u-42", PartitionKey("p_", &types.Identity{ID: "u-42"}))
}

func TestDecode_LogsCorruptSnapshot(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	got := decode(log, "lovedones_u1", []byte("[{"))
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Contains(t, buf.String(), "lovedones_u1")
}

func TestDecode_NullPhotoListBecomesEmpty(t *testing.T) {
	got := decode(zerolog.Nop(), "k", []byte(`[{"id":"a","fullName":"A","relationship":"R","photoFileNames":null}]`))
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].PhotoFileNames)
}
