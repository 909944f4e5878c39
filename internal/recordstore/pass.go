package recordstore

import (
	"context"
	"time"

	"github.com/mycelian/rinku/internal/types"
)

// trigger starts a pass, or queues exactly one follow-up when a pass is
// already running. w, when non-nil, receives the result of the pass that
// will observe this trigger.
func (s *Store) trigger(reason string, w chan error) {
	if s.st.identity == nil {
		if w != nil {
			w <- ErrNotSignedIn
		}
		return
	}
	if s.st.syncing {
		s.st.pending = true
		if w != nil {
			s.st.next = append(s.st.next, w)
		}
		s.log.Debug().Str("reason", reason).Msg("reconciliation already running, queued follow-up")
		return
	}
	if w != nil {
		s.st.waiting = append(s.st.waiting, w)
	}
	s.startPass(reason)
}

func (s *Store) startPass(reason string) {
	s.st.passSeq++
	seq, gen := s.st.passSeq, s.gen.Load()
	s.st.syncing = true
	s.st.touched = make(map[string]struct{})
	s.st.deleted = make(map[string]struct{})

	owner := *s.st.identity
	snapshot := types.CloneAll(s.st.records)
	ctx, cancel := context.WithCancel(types.WithIdentity(s.ctx, &owner))
	s.st.passCancel = cancel

	s.log.Debug().Str("reason", reason).Uint64("pass", seq).Int("local", len(snapshot)).Msg("starting reconciliation pass")
	s.passes.Add(1)
	go func() {
		defer s.passes.Done()
		defer cancel()
		merged, _, err := s.deps.Reconciler.Run(ctx, snapshot, owner.ID)
		s.post(func() { s.finishPass(seq, gen, merged, err) })
	}()
}

// finishPass applies a pass result on the loop goroutine. Results of a pass
// that belongs to a previous session are dropped.
func (s *Store) finishPass(seq, gen uint64, merged []types.LovedOne, err error) {
	if gen != s.gen.Load() || seq != s.st.passSeq {
		passesDiscardedTotal.Inc()
		s.log.Debug().Uint64("pass", seq).Msg("discarding result of a stale reconciliation pass")
		return
	}

	if err != nil {
		s.st.lastErr = err
		s.log.Error().Err(err).Uint64("pass", seq).Msg("reconciliation failed, local state kept")
	} else {
		s.st.records = s.mergeConcurrentEdits(merged)
		s.st.lastErr = nil
		s.st.lastSynced = time.Now().UTC()
		s.persist()
	}

	waiting := s.st.waiting
	s.st.waiting = nil
	s.st.syncing = false
	s.st.passCancel = nil
	s.st.touched, s.st.deleted = nil, nil
	failWaiters(waiting, err)

	if s.st.pending {
		s.st.pending = false
		s.st.waiting, s.st.next = s.st.next, nil
		s.startPass("follow_up")
	}
}

// mergeConcurrentEdits lays the mutations made while the pass was running
// over its result: records deleted meanwhile are dropped, records created or
// changed meanwhile keep their current in-memory version.
func (s *Store) mergeConcurrentEdits(merged []types.LovedOne) []types.LovedOne {
	out := make([]types.LovedOne, 0, len(merged))
	for _, m := range merged {
		k := types.IDKey(m.ID)
		if _, gone := s.st.deleted[k]; gone {
			// the pass may have created it remotely or saved its photos after
			// the delete was handled
			if s.st.identity != nil {
				id := m.ID
				s.submit("delete", id, false, func(ctx context.Context) error {
					return s.deps.Gateway.DeleteRecord(ctx, id)
				})
			}
			s.removeAssets(m)
			continue
		}
		out = append(out, m)
	}
	for _, cur := range s.st.records {
		k := types.IDKey(cur.ID)
		if _, ok := s.st.touched[k]; !ok {
			continue
		}
		if i := types.IndexOf(out, cur.ID); i >= 0 {
			out[i] = cur.Clone()
		} else {
			out = append(out, cur.Clone())
		}
	}
	return out
}

// markTouched records a mutation for mergeConcurrentEdits.
func (s *Store) markTouched(id string) {
	if !s.st.syncing {
		return
	}
	k := types.IDKey(id)
	s.st.touched[k] = struct{}{}
	delete(s.st.deleted, k)
}

func (s *Store) markDeleted(id string) {
	if !s.st.syncing {
		return
	}
	k := types.IDKey(id)
	s.st.deleted[k] = struct{}{}
	delete(s.st.touched, k)
}

// Resync runs a reconciliation pass and returns its error. When a pass is
// already running, it waits for the follow-up pass that will include any
// changes made so far.
func (s *Store) Resync(ctx context.Context) error {
	w := make(chan error, 1)
	if err := s.do(ctx, func() { s.trigger("manual", w) }); err != nil {
		return err
	}
	select {
	case err := <-w:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the current session and sync state.
func (s *Store) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.do(ctx, func() {
		st = Status{
			Partition:    s.st.partition,
			Records:      len(s.st.records),
			Syncing:      s.st.syncing,
			Pending:      s.st.pending,
			LastError:    s.st.lastErr,
			LastSyncedAt: s.st.lastSynced,
			Generation:   s.gen.Load(),
		}
		if s.st.identity != nil {
			st.UserID = s.st.identity.ID
		}
	})
	return st, err
}
