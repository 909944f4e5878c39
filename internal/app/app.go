// Package app wires the sync engine together from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/client"
	"github.com/mycelian/rinku/internal/assets"
	"github.com/mycelian/rinku/internal/blobstore"
	"github.com/mycelian/rinku/internal/cache"
	"github.com/mycelian/rinku/internal/config"
	"github.com/mycelian/rinku/internal/health"
	"github.com/mycelian/rinku/internal/identity"
	"github.com/mycelian/rinku/internal/localstate"
	"github.com/mycelian/rinku/internal/reconcile"
	"github.com/mycelian/rinku/internal/recordstore"
	"github.com/mycelian/rinku/internal/shardqueue"
	"github.com/mycelian/rinku/internal/types"
)

// App owns every long-lived component of one sync client.
type App struct {
	Config  *config.Config
	Client  *client.Client
	Session *identity.Session
	Group   *identity.StaticGroup
	Assets  *assets.LocalStorage
	Store   *recordstore.Store
	Health  *health.BackendChecker

	poller  *identity.GroupPoller
	cache   closableCache
	log     zerolog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeMu sync.Once
}

// closableCache is the subset of a record cache App has to release.
type closableCache interface {
	types.RecordCache
	Close() error
}

type nopCloser struct{ *cache.Memory }

func (nopCloser) Close() error { return nil }

// sessionFetcher attaches the signed-in identity to membership requests.
type sessionFetcher struct {
	session *identity.Session
	client  *client.Client
}

func (f sessionFetcher) FetchGroupMembership(ctx context.Context) (*string, error) {
	id := f.session.Current()
	if id == nil {
		return nil, nil
	}
	return f.client.FetchGroupMembership(types.WithIdentity(ctx, id))
}

// New builds the components. Nothing runs in the background until Start.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	var opts []client.Option
	if cfg.HTTPTimeout > 0 {
		opts = append(opts, client.WithHTTPTimeout(cfg.HTTPTimeout))
	}
	if cfg.BlobDriver == config.BlobGCS {
		gcs, err := blobstore.NewGCS(ctx, blobstore.GCSConfig{
			Bucket:   cfg.GCSBucket,
			Endpoint: cfg.GCSEndpoint,
			Timeout:  cfg.HTTPTimeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("gcs blob store: %w", err)
		}
		opts = append(opts, client.WithBlobStore(gcs))
	}
	if cfg.APIKey == "" {
		a.Client = client.NewWithDevMode(cfg.BackendURL, opts...)
	} else {
		a.Client = client.New(cfg.BackendURL, cfg.APIKey, opts...)
	}

	switch cfg.CacheDriver {
	case config.CacheMemory:
		a.cache = nopCloser{cache.NewMemory(log)}
	default:
		sq, err := cache.OpenSQLite(localstate.DBPath(cfg.DataDir), log)
		if err != nil {
			_ = a.Client.Close()
			return nil, fmt.Errorf("open record cache: %w", err)
		}
		a.cache = sq
	}

	photos, err := localstate.PhotosDir(cfg.DataDir)
	if err == nil {
		a.Assets, err = assets.NewLocalStorage(photos, log)
	}
	if err != nil {
		_ = a.cache.Close()
		_ = a.Client.Close()
		return nil, fmt.Errorf("photo assets: %w", err)
	}

	a.Session = identity.NewSession(log)
	if cfg.GroupPollInterval > 0 {
		a.poller = identity.NewGroupPoller(sessionFetcher{session: a.Session, client: a.Client}, log)
		a.Group = a.poller.StaticGroup
	} else {
		a.Group = identity.NewStaticGroup("")
	}

	a.Store, err = recordstore.New(recordstore.Deps{
		Identity: a.Session,
		Groups:   a.Group,
		Gateway:  a.Client,
		Assets:   a.Assets,
		Cache:    a.cache,
	}, recordstore.Config{
		PartitionPrefix: cfg.PartitionPrefix,
		Reconcile:       reconcile.Config{Concurrency: cfg.ReconcileConcurrency},
		Push: shardqueue.Config{
			Shards:      cfg.PushShards,
			QueueSize:   cfg.PushQueueSize,
			MaxAttempts: cfg.PushMaxAttempts,
			BaseBackoff: cfg.PushBaseBackoff,
		},
	}, log)
	if err != nil {
		_ = a.cache.Close()
		_ = a.Client.Close()
		return nil, err
	}

	a.Health = health.NewBackendChecker(a.Client, log, 0, func(ctx context.Context) {
		if err := a.Store.Resync(ctx); err != nil && !errors.Is(err, recordstore.ErrNotSignedIn) {
			log.Warn().Err(err).Msg("resync after backend recovery failed")
		}
	})
	return a, nil
}

// Start launches the group poller and the backend checker when their
// intervals are configured. The poller also refreshes on every sign-in and
// sign-out.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	if a.poller != nil {
		events, unsubscribe := a.Session.Subscribe()
		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			a.poller.Start(ctx, a.Config.GroupPollInterval)
		}()
		go func() {
			defer a.wg.Done()
			defer unsubscribe()
			a.poller.Follow(ctx, events)
		}()
	}
	if a.Config.HealthInterval > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Health.Start(ctx, a.Config.HealthInterval)
		}()
	}
}

// Close stops background work, drains pending pushes and releases the cache
// and HTTP client.
func (a *App) Close() error {
	var errs []error
	a.closeMu.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
		errs = append(errs, a.Store.Close(), a.cache.Close(), a.Client.Close())
	})
	return errors.Join(errs...)
}
