package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/rinku/internal/config"
	"github.com/mycelian/rinku/internal/mockbackend"
	"github.com/mycelian/rinku/internal/types"
)

func startBackend(t *testing.T) (*mockbackend.Backend, *httptest.Server) {
	t.Helper()
	b := mockbackend.New("", zerolog.Nop())
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	a.Start(context.Background())
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func signInAndWait(t *testing.T, a *App, user string) {
	t.Helper()
	a.Session.SignIn(types.Identity{ID: user})
	require.Eventually(t, func() bool {
		st, err := a.Store.Status(context.Background())
		return err == nil && st.UserID == user && !st.Syncing && !st.LastSyncedAt.IsZero()
	}, 3*time.Second, 10*time.Millisecond)
}

func TestTwoDevicesConverge(t *testing.T) {
	backend, srv := startBackend(t)
	ctx := context.Background()

	deviceA := newApp(t, config.NewForTesting(srv.URL, t.TempDir()))
	_, err := deviceA.Assets.Save([]byte("jpeg-bytes"), "AB12", "AB12_a.jpg")
	require.NoError(t, err)
	require.NoError(t, deviceA.cache.Save(ctx, "lovedones_u1", []types.LovedOne{{
		ID: "AB12", FullName: "Ann", Relationship: "Mother", PhotoFileNames: []string{"AB12_a.jpg"},
	}}))

	signInAndWait(t, deviceA, "u1")

	remote := backend.Records()
	require.Len(t, remote, 1)
	assert.Equal(t, "ab12", remote[0].ID)
	list, err := deviceA.Store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ab12", list[0].ID)
	assert.Equal(t, []string{"AB12_a.jpg"}, list[0].PhotoFileNames)

	deviceB := newApp(t, config.NewForTesting(srv.URL, t.TempDir()))
	signInAndWait(t, deviceB, "u1")

	list, err = deviceB.Store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"ab12_a.jpg"}, list[0].PhotoFileNames)
	data, err := deviceB.Assets.Load("ab12_a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	// a second pass on device A finds its existing file and changes nothing
	require.NoError(t, deviceA.Store.Resync(ctx))
	list, _ = deviceA.Store.List(ctx)
	assert.Equal(t, []string{"AB12_a.jpg"}, list[0].PhotoFileNames)
	assert.Len(t, backend.Records(), 1)
}

func TestEditsPropagate(t *testing.T) {
	backend, srv := startBackend(t)
	ctx := context.Background()
	a := newApp(t, config.NewForTesting(srv.URL, t.TempDir()))
	signInAndWait(t, a, "u1")

	rec, err := a.Store.Create(ctx, types.LovedOne{FullName: "Ben", Relationship: "Brother"})
	require.NoError(t, err)
	require.NoError(t, a.Store.Enroll(ctx, rec.ID))
	require.NoError(t, a.Store.AwaitPush(ctx, rec.ID))

	remote := backend.Records()
	require.Len(t, remote, 1)
	assert.True(t, remote[0].Enrolled)
	assert.Equal(t, "u1", remote[0].OwnerID)

	require.NoError(t, a.Store.Delete(ctx, rec.ID))
	require.NoError(t, a.Store.AwaitPush(ctx, rec.ID))
	assert.Empty(t, backend.Records())
}

func TestSQLiteCacheSurvivesRestart(t *testing.T) {
	_, srv := startBackend(t)
	dir := t.TempDir()
	cfg := config.NewForTesting(srv.URL, dir)
	cfg.CacheDriver = config.CacheSQLite
	ctx := context.Background()

	first, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	rec, err := first.Store.Create(ctx, types.LovedOne{FullName: "Offline", Relationship: "Friend"})
	require.NoError(t, err)
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())

	second := newApp(t, cfg)
	got, found, err := second.Store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Offline", got.FullName)
}

func TestGroupPollerFollowsBackend(t *testing.T) {
	backend, srv := startBackend(t)
	backend.SetGroup("u1", "fam")
	cfg := config.NewForTesting(srv.URL, t.TempDir())
	cfg.GroupPollInterval = 10 * time.Millisecond
	a := newApp(t, cfg)

	signInAndWait(t, a, "u1")
	require.Eventually(t, func() bool {
		return types.Deref(a.Group.CurrentGroupID()) == "fam"
	}, 2*time.Second, 10*time.Millisecond)

	rec, err := a.Store.Create(context.Background(), types.LovedOne{FullName: "Gran", Relationship: "Grandmother"})
	require.NoError(t, err)
	require.NotNil(t, rec.GroupID)
	assert.Equal(t, "fam", *rec.GroupID)
}

func TestGroupRefreshedOnSignIn(t *testing.T) {
	backend, srv := startBackend(t)
	backend.SetGroup("u1", "fam")
	cfg := config.NewForTesting(srv.URL, t.TempDir())
	cfg.GroupPollInterval = time.Hour
	a := newApp(t, cfg)

	signInAndWait(t, a, "u1")
	require.Eventually(t, func() bool {
		return types.Deref(a.Group.CurrentGroupID()) == "fam"
	}, 2*time.Second, 10*time.Millisecond, "membership must not wait for the next poll tick")

	a.Session.SignOut()
	require.Eventually(t, func() bool {
		return a.Group.CurrentGroupID() == nil
	}, 2*time.Second, 10*time.Millisecond)
}
