// Package reconcile merges the local record list with the remote one.
//
// A pass fetches every remote record, carries over the local photo list of
// the matching local record (ids compare case-insensitively), downloads
// photos that have no local file yet, and pushes local-only records to the
// backend together with their photos. Only the initial fetch can fail the
// pass; every later failure is logged and the affected data is kept as is.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mycelian/rinku/internal/types"
)

// ErrFetchFailed wraps the error of the initial remote fetch.
var ErrFetchFailed = errors.New("fetch remote records")

// Config tunes a pass.
type Config struct {
	// Concurrency bounds how many records are processed at once.
	Concurrency int
}

// Report summarizes one pass.
type Report struct {
	Remote           int
	LocalOnly        int
	Created          int
	CreateFailures   int
	PhotosDownloaded int
	PhotosLinked     int
	DownloadFailures int
	PhotosUploaded   int
	UploadFailures   int
}

// Engine runs reconciliation passes. It holds no record state between
// passes and is safe for concurrent use.
type Engine struct {
	gw     types.Gateway
	assets types.AssetStore
	cfg    Config
	log    zerolog.Logger
}

func New(gw types.Gateway, assets types.AssetStore, cfg Config, log zerolog.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Engine{
		gw:     gw,
		assets: assets,
		cfg:    cfg,
		log:    log.With().Str("component", "reconcile").Logger(),
	}
}

// Run merges local with the remote record set. ownerID is the signed-in
// identity that owns records created during the pass.
//
// On a failed fetch it returns an error wrapping ErrFetchFailed and a nil
// slice; the caller must leave its state untouched. A cancelled ctx also
// returns an error, since the pass may be incomplete.
func (e *Engine) Run(ctx context.Context, local []types.LovedOne, ownerID string) ([]types.LovedOne, Report, error) {
	start := time.Now()
	defer func() { passDuration.Observe(time.Since(start).Seconds()) }()

	var rep Report
	remote, err := e.gw.FetchRecords(ctx)
	if err != nil {
		passesTotal.WithLabelValues("fetch_failed").Inc()
		e.log.Error().Err(err).Msg("remote fetch failed, keeping local state")
		return nil, rep, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	remote = dedupeRemote(remote)
	rep.Remote = len(remote)

	localByKey := make(map[string]types.LovedOne, len(local))
	for _, l := range local {
		k := types.IDKey(l.ID)
		if _, dup := localByKey[k]; !dup {
			localByKey[k] = l
		}
	}

	merged := make([]types.LovedOne, len(remote))
	stats := make([]photoStats, len(remote))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, r := range remote {
		i, r := i, r
		g.Go(func() error {
			var photos []string
			if l, ok := localByKey[types.IDKey(r.ID)]; ok {
				photos = append(photos, l.PhotoFileNames...)
			}
			photos, stats[i] = e.reconcilePhotos(gctx, r.ID, photos)
			merged[i] = r.Materialize(photos)
			return nil
		})
	}
	_ = g.Wait()
	for _, s := range stats {
		rep.PhotosDownloaded += s.downloaded
		rep.PhotosLinked += s.linked
		rep.DownloadFailures += s.failed
	}

	mergedKeys := make(map[string]struct{}, len(merged))
	for _, m := range merged {
		mergedKeys[types.IDKey(m.ID)] = struct{}{}
	}
	var localOnly []types.LovedOne
	seen := make(map[string]struct{})
	for _, l := range local {
		k := types.IDKey(l.ID)
		if _, ok := mergedKeys[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		localOnly = append(localOnly, l)
	}
	rep.LocalOnly = len(localOnly)

	pushed := make([]pushResult, len(localOnly))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, l := range localOnly {
		i, l := i, l
		g.Go(func() error {
			pushed[i] = e.pushLocalOnly(gctx, l, ownerID)
			return nil
		})
	}
	_ = g.Wait()
	for _, p := range pushed {
		merged = append(merged, p.record)
		if p.created {
			rep.Created++
		} else {
			rep.CreateFailures++
		}
		rep.PhotosUploaded += p.uploaded
		rep.UploadFailures += p.uploadFailed
	}

	if err := ctx.Err(); err != nil {
		passesTotal.WithLabelValues("cancelled").Inc()
		return nil, rep, fmt.Errorf("reconcile: %w", err)
	}
	passesTotal.WithLabelValues("ok").Inc()
	e.log.Info().
		Int("remote", rep.Remote).
		Int("local_only", rep.LocalOnly).
		Int("created", rep.Created).
		Int("create_failures", rep.CreateFailures).
		Int("downloaded", rep.PhotosDownloaded).
		Int("download_failures", rep.DownloadFailures).
		Int("uploaded", rep.PhotosUploaded).
		Int("upload_failures", rep.UploadFailures).
		Dur("took", time.Since(start)).
		Msg("reconciliation pass complete")
	return merged, rep, nil
}

// dedupeRemote keeps the first of several rows whose ids differ only by case.
func dedupeRemote(in []types.RemoteRecord) []types.RemoteRecord {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, r := range in {
		k := types.IDKey(r.ID)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
