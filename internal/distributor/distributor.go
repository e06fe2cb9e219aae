// Package distributor drives the sample, persist, broadcast loop.
package distributor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sysscope/internal/models"
	"sysscope/internal/observability"
	"sysscope/internal/sampler"
	"sysscope/internal/utils"
)

var (
	ErrAlreadyStarted = errors.New("distributor already started")
	ErrStopped        = errors.New("distributor stopped")
)

// State is the lifecycle position of a Distributor.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Store is the write side of the persistence layer.
type Store interface {
	Append(ctx context.Context, sample models.Sample) (models.StoredRecord, error)
}

// Broadcaster fans a persisted sample out to live subscribers.
type Broadcaster interface {
	Broadcast(sample models.Sample) int
}

// Distributor is the sole writer to the store and the sole broadcaster. Its
// loop sleeps for the interval after each tick finishes, so a slow tick pushes
// the next one back rather than causing a burst.
type Distributor struct {
	sampler     sampler.Sampler
	store       Store
	broadcaster Broadcaster
	interval    time.Duration
	logger      *utils.Logger
	metrics     *observability.Metrics

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New wires a distributor. logger and metrics may be nil.
func New(s sampler.Sampler, store Store, b Broadcaster, interval time.Duration, logger *utils.Logger, metrics *observability.Metrics) *Distributor {
	return &Distributor{
		sampler:     s,
		store:       store,
		broadcaster: b,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
		done:        make(chan struct{}),
	}
}

// Start launches the tick loop. It runs until ctx is cancelled, Stop is
// called, or the sampler fails fatally.
func (d *Distributor) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case Running:
		return ErrAlreadyStarted
	case Stopped:
		return ErrStopped
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.state = Running
	go d.run(runCtx)
	d.logf("Distributor started (interval %s)", d.interval)
	return nil
}

// Stop cancels the loop and waits for the in-flight tick to finish or be
// abandoned. It returns the fatal error that ended the loop, if any.
func (d *Distributor) Stop() error {
	d.mu.Lock()
	switch d.state {
	case Idle:
		d.state = Stopped
		close(d.done)
		d.mu.Unlock()
		return nil
	case Running:
		d.cancel()
	}
	d.mu.Unlock()

	<-d.done
	return d.Err()
}

// Done is closed once the distributor has stopped.
func (d *Distributor) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the distributor stops and returns its fatal error.
func (d *Distributor) Wait() error {
	<-d.done
	return d.Err()
}

// Err returns the fatal error that stopped the loop, or nil.
func (d *Distributor) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// State returns the current lifecycle state.
func (d *Distributor) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Distributor) run(ctx context.Context) {
	var fatal error
	defer func() {
		d.mu.Lock()
		d.state = Stopped
		d.err = fatal
		d.cancel()
		d.mu.Unlock()
		close(d.done)
		if fatal != nil {
			d.logf("Distributor stopped: %v", fatal)
		} else {
			d.logf("Distributor stopped")
		}
	}()

	timer := time.NewTimer(d.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if fatal = d.tick(ctx); fatal != nil {
			return
		}
		timer.Reset(d.interval)
	}
}

// tick runs one sample, persist, broadcast cycle. Only a sampler failure is
// returned; a persistence failure skips the broadcast for this tick.
func (d *Distributor) tick(ctx context.Context) error {
	start := time.Now()

	sample, err := d.sampler.Sample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			d.metrics.ObserveTick(observability.TickAbandoned, time.Since(start))
			return nil
		}
		return fmt.Errorf("sample: %w", err)
	}

	if _, err := d.store.Append(ctx, sample); err != nil {
		if ctx.Err() != nil {
			d.metrics.ObserveTick(observability.TickAbandoned, time.Since(start))
			return nil
		}
		d.logf("Persist failed, skipping broadcast: %v", err)
		d.metrics.ObserveTick(observability.TickPersistFailed, time.Since(start))
		return nil
	}
	d.metrics.ObservePersisted(sample.Timestamp, sample.NetworkLatency)

	delivered := d.broadcaster.Broadcast(sample)
	d.metrics.ObserveDeliveries(delivered)
	d.metrics.ObserveTick(observability.TickOK, time.Since(start))
	return nil
}

func (d *Distributor) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}
