// Package recordstore is the facade over the loved-one records of the
// signed-in identity.
//
// One goroutine owns the in-memory record list. Public methods, identity and
// group notifications, and finished reconciliation passes all reach it as
// closures on a channel, so the list is never touched concurrently. Remote
// writes run on a shardqueue keyed by record id, which keeps the pushes for
// one record in submission order.
package recordstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/cache"
	"github.com/mycelian/rinku/internal/job"
	"github.com/mycelian/rinku/internal/reconcile"
	"github.com/mycelian/rinku/internal/shardqueue"
	"github.com/mycelian/rinku/internal/types"
)

var (
	// ErrClosed is returned by every method once Close has been called.
	ErrClosed = errors.New("record store closed")
	// ErrNotSignedIn is returned by Resync when nobody is signed in.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrSessionChanged is returned by Resync when the identity changed
	// before the pass finished; its result was discarded.
	ErrSessionChanged = errors.New("identity changed during reconciliation")
	// ErrDuplicateID is returned by Create for an id already in the store.
	ErrDuplicateID = errors.New("loved one already exists")
)

// Reconciler runs one full reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context, local []types.LovedOne, ownerID string) ([]types.LovedOne, reconcile.Report, error)
}

// Deps are the collaborators of a Store. Groups and Reconciler are optional.
type Deps struct {
	Identity   types.IdentityProvider
	Groups     types.GroupMembership
	Gateway    types.Gateway
	Assets     types.AssetStore
	Cache      types.RecordCache
	Reconciler Reconciler
}

// Config tunes a Store.
type Config struct {
	PartitionPrefix string
	Reconcile       reconcile.Config
	Push            shardqueue.Config
}

// Status is a point-in-time view of the store.
type Status struct {
	UserID       string
	Partition    string
	Records      int
	Syncing      bool
	Pending      bool
	LastError    error
	LastSyncedAt time.Time
	Generation   uint64
}

// state is owned by the run loop.
type state struct {
	records   []types.LovedOne
	identity  *types.Identity
	partition string

	syncing    bool
	pending    bool
	passSeq    uint64
	passCancel context.CancelFunc
	touched    map[string]struct{}
	deleted    map[string]struct{}
	waiting    []chan error
	next       []chan error

	lastErr    error
	lastSynced time.Time
}

// Store implements the record facade.
type Store struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger

	ops    chan func()
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	passes sync.WaitGroup

	exec       *shardqueue.ShardExecutor
	pushCtx    context.Context
	pushCancel context.CancelFunc

	gen       atomic.Uint64 // bumped on every identity change
	closeOnce sync.Once

	unsubAuth  func()
	unsubGroup func()

	st state
}

// New loads the partition of the current identity, starts the run loop and,
// when someone is signed in, an initial reconciliation pass.
func New(deps Deps, cfg Config, log zerolog.Logger) (*Store, error) {
	if deps.Identity == nil || deps.Gateway == nil || deps.Assets == nil || deps.Cache == nil {
		return nil, errors.New("recordstore: identity, gateway, assets and cache are required")
	}
	if cfg.PartitionPrefix == "" {
		cfg.PartitionPrefix = cache.DefaultPrefix
	}
	log = log.With().Str("component", "recordstore").Logger()
	if deps.Reconciler == nil {
		deps.Reconciler = reconcile.New(deps.Gateway, deps.Assets, cfg.Reconcile, log)
	}

	s := &Store{
		deps: deps,
		cfg:  cfg,
		log:  log,
		ops:  make(chan func()),
		done: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pushCtx, s.pushCancel = context.WithCancel(context.Background())

	pushCfg := cfg.Push
	pushCfg.Logger = log
	pushCfg.ErrorHandler = s.handlePushError
	s.exec = shardqueue.NewShardExecutor(pushCfg)

	authCh, unsubAuth := deps.Identity.Subscribe()
	s.unsubAuth = unsubAuth
	var groupCh <-chan types.GroupEvent
	s.unsubGroup = func() {}
	if deps.Groups != nil {
		groupCh, s.unsubGroup = deps.Groups.Subscribe()
	}

	s.switchTo(deps.Identity.Current())
	s.trigger("startup", nil)

	go s.run(authCh, groupCh)
	return s, nil
}

// Close stops the run loop, abandons an in-flight pass and waits for queued
// remote pushes to drain. Safe to call multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.passes.Wait()
		s.unsubAuth()
		s.unsubGroup()
		s.exec.Stop()
		s.pushCancel()
	})
	return nil
}

func (s *Store) run(authCh <-chan types.AuthEvent, groupCh <-chan types.GroupEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return
		case op := <-s.ops:
			op()
		case ev, ok := <-authCh:
			if !ok {
				authCh = nil
				continue
			}
			s.handleAuth(ev)
		case ev, ok := <-groupCh:
			if !ok {
				groupCh = nil
				continue
			}
			s.log.Debug().Str("group_id", types.Deref(ev.GroupID)).Msg("group membership changed")
			s.trigger("group_change", nil)
		}
	}
}

func (s *Store) shutdown() {
	if s.st.passCancel != nil {
		s.st.passCancel()
	}
	failWaiters(s.st.waiting, ErrClosed)
	failWaiters(s.st.next, ErrClosed)
	s.st.waiting, s.st.next = nil, nil
}

// do runs fn on the loop goroutine and waits for it.
func (s *Store) do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case s.ops <- op:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// post hands fn to the loop without waiting. It gives up when the store is
// shutting down.
func (s *Store) post(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.ctx.Done():
	}
}

func (s *Store) handleAuth(ev types.AuthEvent) {
	if ev.SignedIn && ev.Identity != nil {
		if s.st.identity != nil && s.st.identity.ID == ev.Identity.ID {
			s.trigger("sign_in", nil)
			return
		}
		s.switchTo(ev.Identity)
		s.trigger("sign_in", nil)
		return
	}
	if s.st.identity == nil {
		return
	}
	s.switchTo(nil)
}

// switchTo clears the in-memory state, abandons any pass of the previous
// session and loads the partition of id (the guest partition for nil).
func (s *Store) switchTo(id *types.Identity) {
	if s.st.passCancel != nil {
		s.st.passCancel()
	}
	failWaiters(s.st.waiting, ErrSessionChanged)
	failWaiters(s.st.next, ErrSessionChanged)

	prev, seq := s.st.partition, s.st.passSeq
	s.st = state{passSeq: seq}
	gen := s.gen.Add(1)

	if id != nil {
		cp := *id
		s.st.identity = &cp
	}
	s.st.partition = cache.PartitionKey(s.cfg.PartitionPrefix, s.st.identity)
	s.st.records = s.deps.Cache.Load(s.ctx, s.st.partition)

	s.log.Info().
		Str("from", prev).
		Str("partition", s.st.partition).
		Int("records", len(s.st.records)).
		Uint64("generation", gen).
		Msg("loaded partition")
}

// persist writes the current list to the cache. Failures are logged; the
// in-memory list stays authoritative.
func (s *Store) persist() {
	if err := s.deps.Cache.Save(s.ctx, s.st.partition, s.st.records); err != nil {
		s.log.Error().Err(err).Str("partition", s.st.partition).Msg("record cache save failed")
	}
}

func failWaiters(ws []chan error, err error) {
	for _, w := range ws {
		w <- err
	}
}

// ------------------------- background pushes -------------------------

// submit enqueues fn on the shard of recordID. Unless always is set the job
// is dropped when the session changed before it ran.
func (s *Store) submit(op, recordID string, always bool, fn func(ctx context.Context) error) {
	gen := s.gen.Load()
	owner := s.st.identity
	j := job.Named(op, recordID, func(ctx context.Context) error {
		if !always && s.gen.Load() != gen {
			pushSkippedTotal.WithLabelValues(op).Inc()
			return nil
		}
		return fn(types.WithIdentity(ctx, owner))
	})
	if err := s.exec.Submit(s.pushCtx, types.IDKey(recordID), j); err != nil {
		pushFailuresTotal.WithLabelValues(op).Inc()
		s.log.Warn().Err(err).Str("op", op).Str("record_id", recordID).Msg("could not enqueue background push")
	}
}

func (s *Store) handlePushError(err error) {
	op := "unknown"
	var jerr *job.Error
	if errors.As(err, &jerr) {
		op = jerr.Op
	}
	pushFailuresTotal.WithLabelValues(op).Inc()
	s.log.Warn().Err(err).Str("op", op).Msg("background push failed")
}

// AwaitPush blocks until every push submitted so far for id has run.
func (s *Store) AwaitPush(ctx context.Context, id string) error {
	if err := s.exec.Barrier(ctx, types.IDKey(id)); err != nil {
		if errors.Is(err, shardqueue.ErrExecutorClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}
