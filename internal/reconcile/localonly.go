package reconcile

import (
	"context"

	"github.com/mycelian/rinku/internal/types"
)

type pushResult struct {
	record       types.LovedOne
	created      bool
	uploaded     int
	uploadFailed int
}

// pushLocalOnly creates l remotely and uploads its photos one at a time.
// On create failure the local record is returned unchanged.
func (e *Engine) pushLocalOnly(ctx context.Context, l types.LovedOne, ownerID string) pushResult {
	res := pushResult{record: l.Clone()}
	created, err := e.gw.CreateRecord(ctx, l.ToRemote(ownerID))
	if err != nil || created == nil {
		localCreatesTotal.WithLabelValues("error").Inc()
		e.log.Warn().Err(err).Str("record_id", l.ID).Msg("creating local-only record remotely failed, keeping it local")
		return res
	}
	localCreatesTotal.WithLabelValues("ok").Inc()
	res.created = true

	photos := append([]string{}, l.PhotoFileNames...)
	res.record = created.Materialize(photos)
	if res.record.ID != l.ID {
		e.log.Debug().Str("local_id", l.ID).Str("remote_id", res.record.ID).Msg("adopting server-assigned id")
	}

	for _, name := range l.PhotoFileNames {
		data, err := e.assets.Load(name)
		if err != nil {
			e.log.Warn().Err(err).Str("record_id", res.record.ID).Str("file", name).Msg("reading local photo for upload failed, skipping")
			photoTransfersTotal.WithLabelValues("upload", "error").Inc()
			res.uploadFailed++
			continue
		}
		if _, err := e.gw.UploadPhoto(ctx, res.record.ID, RemotePhotoName(l.ID, name), data); err != nil {
			e.log.Warn().Err(err).Str("record_id", res.record.ID).Str("file", name).Msg("photo upload failed, skipping")
			photoTransfersTotal.WithLabelValues("upload", "error").Inc()
			res.uploadFailed++
			continue
		}
		photoTransfersTotal.WithLabelValues("upload", "ok").Inc()
		res.uploaded++
	}
	return res
}
