package reconcile

import (
	"context"
	"strings"

	"github.com/mycelian/rinku/internal/types"
)

type photoStats struct {
	downloaded int
	linked     int
	failed     int
}

// LocalPhotoName is the local file name of a remote photo.
func LocalPhotoName(recordID, remoteFileName string) string {
	return recordID + "_" + remoteFileName
}

// RemotePhotoName strips the "<recordID>_" prefix from a local file name.
// Names without the prefix are returned unchanged.
func RemotePhotoName(recordID, localFileName string) string {
	p := len(recordID) + 1
	if len(localFileName) > p && types.IDKey(localFileName[:p]) == types.IDKey(recordID+"_") {
		return localFileName[p:]
	}
	return localFileName
}

// indexFold finds name in list ignoring case.
func indexFold(list []string, name string) int {
	key := types.IDKey(name)
	for i, n := range list {
		if types.IDKey(n) == key {
			return i
		}
	}
	return -1
}

// indexUploaded finds the local entry that was uploaded as remoteFileName.
// Entries without the "<recordID>_" prefix are uploaded under their own name.
func indexUploaded(list []string, recordID, remoteFileName string) int {
	key := types.IDKey(remoteFileName)
	for i, n := range list {
		if types.IDKey(RemotePhotoName(recordID, n)) == key {
			return i
		}
	}
	return -1
}

// reconcilePhotos makes every remote photo of recordID available locally
// and returns the updated list. A metadata fetch failure leaves the list as
// it was.
func (e *Engine) reconcilePhotos(ctx context.Context, recordID string, photos []string) ([]string, photoStats) {
	var st photoStats
	metas, err := e.gw.FetchPhotoMetadata(ctx, recordID)
	if err != nil {
		e.log.Warn().Err(err).Str("record_id", recordID).Msg("photo metadata fetch failed, keeping local photo list")
		photoTransfersTotal.WithLabelValues("metadata", "error").Inc()
		st.failed++
		return photos, st
	}

	for _, m := range metas {
		if strings.TrimSpace(m.FileName) == "" {
			continue
		}
		expected := LocalPhotoName(recordID, m.FileName)

		name := expected
		listed := indexFold(photos, expected)
		if listed < 0 {
			listed = indexUploaded(photos, recordID, m.FileName)
		}
		if listed >= 0 {
			name = photos[listed]
		}
		if e.assets.Exists(name) {
			if listed < 0 {
				photos = append(photos, name)
				st.linked++
			}
			continue
		}

		data, err := e.gw.DownloadPhoto(ctx, m.StoragePath)
		if err != nil {
			e.log.Warn().Err(err).Str("record_id", recordID).Str("storage_path", m.StoragePath).Msg("photo download failed, skipping")
			photoTransfersTotal.WithLabelValues("download", "error").Inc()
			st.failed++
			continue
		}
		saved, err := e.assets.Save(data, recordID, name)
		if err != nil {
			e.log.Warn().Err(err).Str("record_id", recordID).Str("file", name).Msg("saving downloaded photo failed, skipping")
			photoTransfersTotal.WithLabelValues("download", "error").Inc()
			st.failed++
			continue
		}
		photoTransfersTotal.WithLabelValues("download", "ok").Inc()
		st.downloaded++
		if indexFold(photos, saved) < 0 {
			photos = append(photos, saved)
		}
	}
	return photos, st
}
