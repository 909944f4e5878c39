// Package shardqueue runs background remote pushes on a small set of worker
// goroutines. Jobs are partitioned by a stable hash of their key (the folded
// record id), which keeps create → update → delete for one record in FIFO
// order while different records proceed in parallel.
package shardqueue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/mycelian/rinku/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	job Job
}

// ShardExecutor executes Jobs on worker goroutines partitioned by key.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards
	done   chan struct{}    // closed in Stop()
	closed uint32           // 0 → running, 1 → closed

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	if cfg.Shards <= 0 {
		cfg.Shards = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 20 * time.Second
	}

	p := &ShardExecutor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job for the shard derived from key.
//
//   - Returns nil on success.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns *QueueFullError (errors.Is ErrQueueFull) if the shard stays
//     full for EnqueueTimeout.
//   - Returns ctx.Err() if ctx is cancelled first.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&p.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil
	case <-p.done:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier enqueues a no-op job on the shard for key and waits until it runs,
// so every job previously submitted for key has completed.
func (p *ShardExecutor) Barrier(ctx context.Context, key string) error {
	reached := make(chan struct{})
	j := JobFunc(func(context.Context) error {
		close(reached)
		return nil
	})
	if err := p.Submit(ctx, key, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-reached:
		return nil
	}
}

// Stop lets every worker drain its queue, waits for them and returns.
// Idempotent and safe for concurrent use.
func (p *ShardExecutor) Stop() {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return
	}
	p.cfg.Logger.Debug().Int("shards", p.cfg.Shards).Msg("shardqueue: stopping executor")
	close(p.done)
	p.wg.Wait()
	p.cfg.Logger.Debug().Msg("shardqueue: executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			if qj.job != nil {
				p.execute(label, qj)
			}
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))
		case <-p.done:
			drained := 0
			for {
				select {
				case qj := <-ch:
					if qj.job != nil {
						if err := p.runOnce(label, qj); err != nil {
							p.safeHandleError(err)
						}
						drained++
					}
				default:
					if drained > 0 {
						p.cfg.Logger.Debug().Int("shard", idx).Int("drained", drained).Msg("shardqueue: drained remaining jobs")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs one job with bounded retries. A cancelled job context skips
// the run entirely.
func (p *ShardExecutor) execute(label string, qj queuedJob) {
	if err := qj.ctx.Err(); err != nil {
		p.safeHandleError(err)
		return
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.MaxInterval
	exp.Reset()

	for attempt := 1; ; attempt++ {
		err := p.runOnce(label, qj)
		if err == nil {
			return
		}
		if errors.IsIrrecoverable(err) || attempt >= p.cfg.MaxAttempts {
			p.safeHandleError(err)
			return
		}
		select {
		case <-time.After(exp.NextBackOff()):
		case <-p.done:
			p.safeHandleError(err)
			return
		case <-qj.ctx.Done():
			p.safeHandleError(qj.ctx.Err())
			return
		}
	}
}

// runOnce executes a single attempt; a panicking job is reported as an
// error and the worker keeps going.
func (p *ShardExecutor) runOnce(label string, qj queuedJob) (err error) {
	start := time.Now()
	defer func() {
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			p.cfg.Logger.Error().Str("shard", label).Interface("panic", r).Msg("shardqueue: job panic")
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (p *ShardExecutor) safeHandleError(err error) {
	if err == nil || p.cfg.ErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error().Interface("panic", r).Msg("shardqueue: error handler panic")
		}
	}()
	p.cfg.ErrorHandler(err)
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
