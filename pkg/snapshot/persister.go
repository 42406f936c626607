package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"go.uber.org/zap"
)

// Persister writes snapshots in the background so callers never wait on
// the store. Only the latest state per key is kept while a write is in
// flight; older pending states for the same key are superseded.
type Persister struct {
	adapter *Adapter
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]costs.State
	closed  bool
	lastErr error

	// writeMu orders batches so a newer state is never overwritten by an
	// older one.
	writeMu sync.Mutex

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	closeOnce sync.Once
	saved     atomic.Int64
	failures  atomic.Int64
}

// NewPersister starts a background writer. A non-positive timeout uses the
// default of two seconds per write.
func NewPersister(adapter *Adapter, logger *zap.Logger, timeout time.Duration) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = constants.DefaultStoreTimeoutMillis * time.Millisecond
	}
	p := &Persister{
		adapter: adapter,
		logger:  logger,
		timeout: timeout,
		pending: make(map[string]costs.State),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue schedules state to be saved under key and returns immediately.
func (p *Persister) Enqueue(key string, state costs.State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Debug("persister closed, dropping snapshot",
			zap.String("op", "snapshot.Enqueue"),
			zap.String("key", key),
		)
		return
	}
	p.pending[key] = state.Clone()
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush writes everything pending on the calling goroutine.
func (p *Persister) Flush() {
	p.writePending()
}

// Close writes everything pending and stops the background writer.
func (p *Persister) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.stop)
		<-p.done
	})
}

// Saved returns the number of successful writes.
func (p *Persister) Saved() int64 {
	return p.saved.Load()
}

// Failures returns the number of failed writes.
func (p *Persister) Failures() int64 {
	return p.failures.Load()
}

// LastError returns the most recent write error, or nil once a later write
// succeeds.
func (p *Persister) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.writePending()
		case <-p.stop:
			p.writePending()
			return
		}
	}
}

func (p *Persister) writePending() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]costs.State)
	p.mu.Unlock()

	for key, state := range batch {
		p.write(key, state)
	}
}

func (p *Persister) write(key string, state costs.State) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err := p.adapter.Save(ctx, key, state)

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.failures.Add(1)
		p.logger.Warn("failed to save calculator snapshot",
			zap.String("op", "snapshot.write"),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	p.saved.Add(1)
	p.logger.Debug("saved calculator snapshot",
		zap.String("op", "snapshot.write"),
		zap.String("key", key),
	)
}
