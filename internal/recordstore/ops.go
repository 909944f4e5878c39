package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mycelian/rinku/internal/reconcile"
	"github.com/mycelian/rinku/internal/types"
)

// Create normalizes and validates in, assigns an id when it has none,
// attaches the current group, stores it and pushes it in the background.
func (s *Store) Create(ctx context.Context, in types.LovedOne) (types.LovedOne, error) {
	rec := in.Normalize()
	if err := types.ValidateLovedOne(rec); err != nil {
		return types.LovedOne{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.PhotoFileNames == nil {
		rec.PhotoFileNames = []string{}
	}
	rec.GroupID = nil
	if s.deps.Groups != nil {
		rec.GroupID = types.OptionalString(types.Deref(s.deps.Groups.CurrentGroupID()))
	}

	var opErr error
	err := s.do(ctx, func() {
		if types.IndexOf(s.st.records, rec.ID) >= 0 {
			opErr = fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
			return
		}
		s.st.records = append(s.st.records, rec.Clone())
		s.markTouched(rec.ID)
		s.persist()
		mutationsTotal.WithLabelValues("create").Inc()

		if s.st.identity == nil {
			return
		}
		remote := rec.ToRemote(s.st.identity.ID)
		localID := rec.ID
		photos := append([]string{}, rec.PhotoFileNames...)
		gen := s.gen.Load()
		s.submit("create", localID, false, func(ctx context.Context) error {
			created, err := s.deps.Gateway.CreateRecord(ctx, remote)
			if err != nil {
				return err
			}
			remoteID := localID
			if created != nil && created.ID != "" {
				remoteID = created.ID
			}
			s.uploadPhotos(ctx, localID, remoteID, photos)
			if remoteID != localID {
				s.post(func() { s.adoptID(gen, localID, remoteID) })
			}
			return nil
		})
	})
	if err != nil {
		return types.LovedOne{}, err
	}
	if opErr != nil {
		return types.LovedOne{}, opErr
	}
	return rec.Clone(), nil
}

// uploadPhotos sends the photos of a freshly created record one at a time.
// Failures are logged and skipped.
func (s *Store) uploadPhotos(ctx context.Context, localID, remoteID string, photos []string) {
	for _, name := range photos {
		data, err := s.deps.Assets.Load(name)
		if err != nil {
			photoUploadsTotal.WithLabelValues("error").Inc()
			s.log.Warn().Err(err).Str("record_id", remoteID).Str("file", name).Msg("reading local photo for upload failed, skipping")
			continue
		}
		if _, err := s.deps.Gateway.UploadPhoto(ctx, remoteID, reconcile.RemotePhotoName(localID, name), data); err != nil {
			photoUploadsTotal.WithLabelValues("error").Inc()
			s.log.Warn().Err(err).Str("record_id", remoteID).Str("file", name).Msg("photo upload failed, skipping")
			continue
		}
		photoUploadsTotal.WithLabelValues("ok").Inc()
	}
}

// adoptID switches a record to the id the backend confirmed.
func (s *Store) adoptID(gen uint64, localID, remoteID string) {
	if gen != s.gen.Load() {
		return
	}
	i := types.IndexOf(s.st.records, localID)
	if i < 0 || s.st.records[i].ID == remoteID {
		return
	}
	s.log.Debug().Str("local_id", localID).Str("remote_id", remoteID).Msg("adopting server-assigned id")
	s.st.records[i].ID = remoteID
	s.markTouched(remoteID)
	s.persist()
}

// Get returns a copy of the record with id.
func (s *Store) Get(ctx context.Context, id string) (types.LovedOne, bool, error) {
	var (
		out   types.LovedOne
		found bool
	)
	err := s.do(ctx, func() {
		if i := types.IndexOf(s.st.records, id); i >= 0 {
			out, found = s.st.records[i].Clone(), true
		}
	})
	return out, found, err
}

// List returns a copy of all records in display order.
func (s *Store) List(ctx context.Context) ([]types.LovedOne, error) {
	var out []types.LovedOne
	err := s.do(ctx, func() {
		out = types.CloneAll(s.st.records)
	})
	if out == nil {
		out = []types.LovedOne{}
	}
	return out, err
}

// Update replaces the stored record matching rec.ID. A nil photo list keeps
// the stored one. Unknown ids are ignored.
func (s *Store) Update(ctx context.Context, rec types.LovedOne) error {
	rec = rec.Normalize()
	if err := types.ValidateLovedOne(rec); err != nil {
		return err
	}
	return s.do(ctx, func() {
		i := types.IndexOf(s.st.records, rec.ID)
		if i < 0 {
			s.log.Debug().Str("record_id", rec.ID).Msg("update of unknown record ignored")
			return
		}
		rec.ID = s.st.records[i].ID
		if rec.PhotoFileNames == nil {
			rec.PhotoFileNames = append([]string{}, s.st.records[i].PhotoFileNames...)
		}
		s.st.records[i] = rec.Clone()
		s.markTouched(rec.ID)
		s.persist()
		mutationsTotal.WithLabelValues("update").Inc()
		s.pushUpdate(rec)
	})
}

// Enroll marks the record as having a recognition profile.
func (s *Store) Enroll(ctx context.Context, id string) error {
	return s.do(ctx, func() {
		i := types.IndexOf(s.st.records, id)
		if i < 0 {
			return
		}
		s.st.records[i].Enrolled = true
		s.markTouched(id)
		s.persist()
		mutationsTotal.WithLabelValues("enroll").Inc()
		s.pushUpdate(s.st.records[i])
	})
}

// AppendPhotos adds local photo file names to the record. Nothing is
// uploaded: photos go up when the record is created, either by Create or by
// a pass that finds it missing on the backend.
func (s *Store) AppendPhotos(ctx context.Context, id string, fileNames []string) error {
	if len(fileNames) == 0 {
		return nil
	}
	return s.do(ctx, func() {
		i := types.IndexOf(s.st.records, id)
		if i < 0 {
			return
		}
		s.st.records[i].PhotoFileNames = append(s.st.records[i].PhotoFileNames, fileNames...)
		s.markTouched(id)
		s.persist()
		mutationsTotal.WithLabelValues("append_photos").Inc()
	})
}

// Delete removes the record, then deletes it remotely and removes its local
// photos in the background. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.do(ctx, func() {
		i := types.IndexOf(s.st.records, id)
		if i < 0 {
			return
		}
		gone := s.st.records[i]
		s.st.records = append(s.st.records[:i:i], s.st.records[i+1:]...)
		s.markDeleted(gone.ID)
		s.persist()
		mutationsTotal.WithLabelValues("delete").Inc()

		if s.st.identity != nil {
			s.submit("delete", gone.ID, false, func(ctx context.Context) error {
				return s.deps.Gateway.DeleteRecord(ctx, gone.ID)
			})
		}
		s.removeAssets(gone)
	})
}

// removeAssets deletes the listed photos of rec and every file carrying its
// id prefix in the background.
func (s *Store) removeAssets(rec types.LovedOne) {
	id := rec.ID
	photos := append([]string{}, rec.PhotoFileNames...)
	s.submit("delete_assets", id, true, func(context.Context) error {
		var errs []error
		for _, name := range photos {
			if err := s.deps.Assets.Delete(name); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.deps.Assets.DeleteAll(id); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

func (s *Store) pushUpdate(rec types.LovedOne) {
	if s.st.identity == nil {
		return
	}
	remote := rec.ToRemote(s.st.identity.ID)
	s.submit("update", rec.ID, false, func(ctx context.Context) error {
		return s.deps.Gateway.UpdateRecord(ctx, remote)
	})
}
