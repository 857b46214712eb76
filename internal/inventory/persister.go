package inventory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hardware-inventory/internal/kvstore"
)

// persister writes snapshots to the key-value store in the background.
// Only the latest pending snapshot is written; older ones are dropped.
// Failures are logged and counted, never retried.
type persister struct {
	kv      kvstore.Store
	key     string
	timeout time.Duration
	logger  *zap.Logger
	metrics *Metrics

	mu       sync.Mutex
	pending  []byte
	seq      uint64        // snapshots submitted
	written  uint64        // highest seq whose write attempt finished
	progress chan struct{} // closed and replaced after every write attempt

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func newPersister(kv kvstore.Store, key string, timeout time.Duration, logger *zap.Logger, metrics *Metrics) *persister {
	p := &persister{
		kv:       kv,
		key:      key,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// submit queues data as the latest snapshot and returns immediately.
func (p *persister) submit(data []byte) {
	p.mu.Lock()
	p.pending = data
	p.seq++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.writePending()
		case <-p.quit:
			p.writePending()
			return
		}
	}
}

func (p *persister) writePending() {
	p.mu.Lock()
	data, seq := p.pending, p.seq
	p.pending = nil
	p.mu.Unlock()

	if data != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.kv.Set(ctx, p.key, data)
		cancel()
		if err != nil {
			p.metrics.persistFailed()
			p.logger.Error("persist inventory failed",
				zap.String("key", p.key),
				zap.String("driver", string(p.kv.Driver())),
				zap.Error(err))
		} else {
			p.logger.Debug("inventory persisted", zap.String("key", p.key), zap.Int("bytes", len(data)))
		}
	}

	p.mu.Lock()
	if seq > p.written {
		p.written = seq
	}
	close(p.progress)
	p.progress = make(chan struct{})
	p.mu.Unlock()
}

// flush waits until every snapshot submitted before the call has been attempted.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.seq
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.written >= target {
			p.mu.Unlock()
			return nil
		}
		ch := p.progress
		p.mu.Unlock()

		select {
		case <-ch:
		case <-p.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stop writes the last pending snapshot and ends the goroutine.
func (p *persister) stop(ctx context.Context) error {
	p.once.Do(func() { close(p.quit) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
