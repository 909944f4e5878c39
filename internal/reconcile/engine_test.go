package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/rinku/internal/assets"
	"github.com/mycelian/rinku/internal/gatewaytest"
	"github.com/mycelian/rinku/internal/types"
)

func setup(t *testing.T) (*Engine, *gatewaytest.Fake, *assets.LocalStorage) {
	t.Helper()
	gw := gatewaytest.New()
	store, err := assets.NewLocalStorage(filepath.Join(t.TempDir(), "photos"), zerolog.Nop())
	require.NoError(t, err)
	return New(gw, store, Config{Concurrency: 2}, zerolog.Nop()), gw, store
}

func rec(id, name string, photos ...string) types.LovedOne {
	if photos == nil {
		photos = []string{}
	}
	return types.LovedOne{ID: id, FullName: name, Relationship: "Friend", PhotoFileNames: photos}
}

func TestRun_FetchFailureAbortsWithoutSideEffects(t *testing.T) {
	e, gw, _ := setup(t)
	gw.FailFetch = true

	merged, _, err := e.Run(context.Background(), []types.LovedOne{rec("local-1", "Ann")}, "u1")
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, gatewaytest.ErrInjected)
	assert.Nil(t, merged)
	assert.Zero(t, gw.Calls("create"), "no writes may happen after a failed fetch")
	assert.Zero(t, gw.Calls("metadata"))
}

func TestRun_CaseInsensitiveMatchYieldsOneRecord(t *testing.T) {
	e, gw, store := setup(t)
	gw.Seed(types.RemoteRecord{ID: "ab12", FullName: "Ann Remote", Relationship: "Mother"})
	_, err := store.Save([]byte("x"), "AB12", "AB12_old.jpg")
	require.NoError(t, err)

	merged, rep, err := e.Run(context.Background(), []types.LovedOne{rec("AB12", "Ann", "AB12_old.jpg")}, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "ab12", merged[0].ID, "remote id is adopted")
	assert.Equal(t, "Ann Remote", merged[0].FullName, "remote fields win")
	assert.Equal(t, []string{"AB12_old.jpg"}, merged[0].PhotoFileNames, "local photo list is carried over")
	assert.Zero(t, rep.LocalOnly)
	assert.Zero(t, gw.Calls("create"))
}

func TestRun_ExistingExpectedFileIsNotRedownloaded(t *testing.T) {
	e, gw, store := setup(t)
	gw.Seed(types.RemoteRecord{ID: "1", FullName: "Ana Ruiz", Relationship: "Sister"})
	gw.SeedPhoto("1", "a.jpg", []byte("remote"))
	_, err := store.Save([]byte("local"), "1", "1_a.jpg")
	require.NoError(t, err)

	merged, rep, err := e.Run(context.Background(), []types.LovedOne{rec("1", "Ana Ruiz", "1_a.jpg")}, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, []string{"1_a.jpg"}, merged[0].PhotoFileNames)
	assert.Zero(t, gw.Calls("download"))
	assert.Zero(t, rep.PhotosDownloaded)

	data, err := store.Load("1_a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "local", string(data), "local file must be left alone")
}

func TestRun_DownloadsMissingPhotos(t *testing.T) {
	e, gw, store := setup(t)
	gw.Seed(types.RemoteRecord{ID: "cd34", FullName: "Bob", Relationship: "Brother"})
	gw.SeedPhoto("cd34", "p1.jpg", []byte("one"))
	gw.SeedPhoto("cd34", "p2.jpg", []byte("two"))

	merged, rep, err := e.Run(context.Background(), nil, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, []string{"cd34_p1.jpg", "cd34_p2.jpg"}, merged[0].PhotoFileNames)
	assert.Equal(t, 2, rep.PhotosDownloaded)

	data, err := store.Load("cd34_p2.jpg")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestRun_LinksExistingUnlistedFile(t *testing.T) {
	e, gw, store := setup(t)
	gw.Seed(types.RemoteRecord{ID: "cd34", FullName: "Bob", Relationship: "Brother"})
	gw.SeedPhoto("cd34", "p1.jpg", []byte("one"))
	_, err := store.Save([]byte("one"), "cd34", "cd34_p1.jpg")
	require.NoError(t, err)

	merged, rep, err := e.Run(context.Background(), []types.LovedOne{rec("cd34", "Bob")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cd34_p1.jpg"}, merged[0].PhotoFileNames)
	assert.Equal(t, 1, rep.PhotosLinked)
	assert.Zero(t, gw.Calls("download"))
}

func TestRun_RestoresListedButMissingFile(t *testing.T) {
	e, gw, store := setup(t)
	gw.Seed(types.RemoteRecord{ID: "cd34", FullName: "Bob", Relationship: "Brother"})
	gw.SeedPhoto("cd34", "p1.jpg", []byte("one"))

	merged, _, err := e.Run(context.Background(), []types.LovedOne{rec("cd34", "Bob", "cd34_p1.jpg")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cd34_p1.jpg"}, merged[0].PhotoFileNames)
	assert.True(t, store.Exists("cd34_p1.jpg"))
	assert.Equal(t, 1, gw.Calls("download"))
}

func TestRun_DownloadFailureIsSkipped(t *testing.T) {
	e, gw, _ := setup(t)
	gw.Seed(types.RemoteRecord{ID: "cd34", FullName: "Bob", Relationship: "Brother"})
	bad := gw.SeedPhoto("cd34", "bad.jpg", []byte("x"))
	gw.SeedPhoto("cd34", "good.jpg", []byte("y"))
	gw.FailDownload[bad.StoragePath] = true

	gw.Seed(types.RemoteRecord{ID: "ef56", FullName: "Cy", Relationship: "Uncle"})
	gw.FailMetadata["ef56"] = true

	merged, rep, err := e.Run(context.Background(), []types.LovedOne{rec("ef56", "Cy", "ef56_keep.jpg")}, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, []string{"cd34_good.jpg"}, merged[0].PhotoFileNames)
	assert.Equal(t, []string{"ef56_keep.jpg"}, merged[1].PhotoFileNames, "metadata failure keeps the local list")
	assert.Equal(t, 2, rep.DownloadFailures)
}

func TestRun_IsIdempotent(t *testing.T) {
	e, gw, store := setup(t)
	gw.Seed(types.RemoteRecord{ID: "cd34", FullName: "Bob", Relationship: "Brother"})
	gw.SeedPhoto("cd34", "p1.jpg", []byte("one"))
	_, err := store.Save([]byte("x"), "Local-1", "Local-1_a.jpg")
	require.NoError(t, err)

	local := []types.LovedOne{rec("cd34", "Bob"), rec("Local-1", "Dee", "Local-1_a.jpg")}
	first, _, err := e.Run(context.Background(), local, "u1")
	require.NoError(t, err)
	second, rep, err := e.Run(context.Background(), first, "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Zero(t, rep.LocalOnly)
	assert.Zero(t, rep.PhotosDownloaded, "uploaded photos must be recognized as already local")
	assert.Equal(t, 1, gw.Calls("create"))
	assert.Len(t, gw.Records(), 2)
}

func TestRun_UnprefixedUploadIsNotDownloadedAgain(t *testing.T) {
	e, gw, store := setup(t)
	_, err := store.Save([]byte("pic"), "", "p.jpg")
	require.NoError(t, err)

	first, rep, err := e.Run(context.Background(), []types.LovedOne{rec("rec2", "Eve", "p.jpg")}, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, rep.PhotosUploaded)
	photos := gw.Photos("rec2")
	require.Len(t, photos, 1)
	assert.Equal(t, "p.jpg", photos[0].FileName)

	second, rep, err := e.Run(context.Background(), first, "u1")
	require.NoError(t, err)
	third, _, err := e.Run(context.Background(), second, "u1")
	require.NoError(t, err)

	require.Len(t, third, 1)
	assert.Equal(t, []string{"p.jpg"}, third[0].PhotoFileNames)
	assert.Zero(t, rep.PhotosDownloaded)
	assert.Zero(t, gw.Calls("download"))
	assert.False(t, store.Exists("rec2_p.jpg"))
}

func TestRun_LocalOnlyCreateFailureKeepsRecordUnchanged(t *testing.T) {
	e, gw, _ := setup(t)
	gw.FailCreate["*"] = true

	memo := "likes tea"
	orig := rec("Local-1", "Dee", "Local-1_a.jpg")
	orig.MemoryPrompt = &memo

	merged, rep, err := e.Run(context.Background(), []types.LovedOne{orig}, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, orig, merged[0])
	assert.Equal(t, 1, rep.CreateFailures)
	assert.Zero(t, gw.Calls("upload"))
}

func TestRun_LocalOnlyCreateAdoptsServerIDAndUploadsPhotos(t *testing.T) {
	e, gw, store := setup(t)
	for _, n := range []string{"Local-1_a.jpg", "Local-1_b.jpg"} {
		_, err := store.Save([]byte(n), "Local-1", n)
		require.NoError(t, err)
	}
	gw.FailUpload["b.jpg"] = true
	group := "g1"
	l := rec("Local-1", "Dee", "Local-1_a.jpg", "Local-1_b.jpg", "Local-1_missing.jpg")
	l.GroupID = &group

	merged, rep, err := e.Run(context.Background(), []types.LovedOne{l}, "u1")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "local-1", merged[0].ID)
	assert.Equal(t, l.PhotoFileNames, merged[0].PhotoFileNames)
	require.NotNil(t, merged[0].GroupID)
	assert.Equal(t, "g1", *merged[0].GroupID)

	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.PhotosUploaded)
	assert.Equal(t, 2, rep.UploadFailures)

	photos := gw.Photos("local-1")
	require.Len(t, photos, 1)
	assert.Equal(t, "a.jpg", photos[0].FileName, "owner prefix is stripped on upload")

	remote := gw.Records()
	require.Len(t, remote, 1)
	assert.Equal(t, "u1", remote[0].OwnerID)
}

func TestRun_OrderRemoteThenLocalOnly(t *testing.T) {
	e, gw, _ := setup(t)
	gw.Seed(types.RemoteRecord{ID: "r1", FullName: "R1", Relationship: "x"})
	gw.Seed(types.RemoteRecord{ID: "r2", FullName: "R2", Relationship: "x"})
	gw.Seed(types.RemoteRecord{ID: "R1", FullName: "dup", Relationship: "x"})

	merged, _, err := e.Run(context.Background(), []types.LovedOne{rec("l1", "L1"), rec("r2", "R2 local"), rec("L1", "dup local")}, "u1")
	require.NoError(t, err)
	ids := make([]string, len(merged))
	for i, m := range merged {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"r1", "r2", "l1"}, ids)
}

func TestRun_CancelledContext(t *testing.T) {
	e, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	merged, _, err := e.Run(ctx, nil, "u1")
	assert.Error(t, err)
	assert.Nil(t, merged)
}

func TestPhotoNames(t *testing.T) {
	assert.Equal(t, "ab12_x.jpg", LocalPhotoName("ab12", "x.jpg"))
	assert.Equal(t, "x.jpg", RemotePhotoName("ab12", "AB12_x.jpg"))
	assert.Equal(t, "x.jpg", RemotePhotoName("AB12", "ab12_x.jpg"))
	assert.Equal(t, "other_x.jpg", RemotePhotoName("ab12", "other_x.jpg"))
	assert.Equal(t, "ab12_", RemotePhotoName("ab12", "ab12_"))

	list := []string{"ab12_x.jpg", "p.jpg"}
	assert.Equal(t, 1, indexUploaded(list, "ab12", "P.jpg"))
	assert.Equal(t, 0, indexUploaded(list, "AB12", "x.jpg"))
	assert.Equal(t, -1, indexUploaded(list, "ab12", "y.jpg"))
}
