// Package sampler reads host counters and the network latency probe and turns
// them into immutable metric samples.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sysscope/internal/models"
)

// ErrCountersUnavailable wraps any failure to read host CPU, memory or disk
// counters. It is fatal to the caller.
var ErrCountersUnavailable = errors.New("host counters unavailable")

const bytesPerMiB = 1024 * 1024

// Counters reads the raw host counters a sample is built from.
type Counters interface {
	// CPUTimes returns cumulative busy and total CPU seconds across all cores.
	CPUTimes(ctx context.Context) (busy, total float64, err error)
	MemoryPercent(ctx context.Context) (float64, error)
	// DiskReadBytes returns cumulative bytes read since boot across whole disks.
	DiskReadBytes(ctx context.Context) (uint64, error)
}

// Prober measures network latency in milliseconds. Implementations never fail;
// they return models.LatencyUnreachable instead.
type Prober interface {
	Probe(ctx context.Context) float64
}

// Sampler produces one sample per call. A returned error means the host
// counters could not be read at all.
type Sampler interface {
	Sample(ctx context.Context) (models.Sample, error)
}

// HostSampler combines host counters and a latency probe.
type HostSampler struct {
	counters Counters
	prober   Prober
	now      func() time.Time

	mu        sync.Mutex
	lastBusy  float64
	lastTotal float64
	hasPrev   bool
	lastTS    time.Time
}

// New builds a sampler from explicit collaborators.
func New(counters Counters, prober Prober) *HostSampler {
	return &HostSampler{
		counters: counters,
		prober:   prober,
		now:      time.Now,
	}
}

// NewHost builds a sampler reading this machine through gopsutil and probing
// probeAddr over TCP.
func NewHost(probeAddr string, probeTimeout time.Duration) *HostSampler {
	return New(GopsutilCounters{}, NewTCPProber(probeAddr, probeTimeout))
}

// Check reads every counter once. Used at startup so that an unsupported host
// fails before any request is served. It also primes the CPU baseline.
func (s *HostSampler) Check(ctx context.Context) error {
	busy, total, err := s.counters.CPUTimes(ctx)
	if err != nil {
		return fmt.Errorf("%w: cpu: %v", ErrCountersUnavailable, err)
	}
	if _, err := s.counters.MemoryPercent(ctx); err != nil {
		return fmt.Errorf("%w: memory: %v", ErrCountersUnavailable, err)
	}
	if _, err := s.counters.DiskReadBytes(ctx); err != nil {
		return fmt.Errorf("%w: disk: %v", ErrCountersUnavailable, err)
	}
	s.mu.Lock()
	s.storeCPU(busy, total)
	s.mu.Unlock()
	return nil
}

// Sample reads all counters and the latency probe. The sample is only returned
// when every field could be populated.
func (s *HostSampler) Sample(ctx context.Context) (models.Sample, error) {
	busy, total, err := s.counters.CPUTimes(ctx)
	if err != nil {
		return models.Sample{}, fmt.Errorf("%w: cpu: %v", ErrCountersUnavailable, err)
	}
	memPercent, err := s.counters.MemoryPercent(ctx)
	if err != nil {
		return models.Sample{}, fmt.Errorf("%w: memory: %v", ErrCountersUnavailable, err)
	}
	readBytes, err := s.counters.DiskReadBytes(ctx)
	if err != nil {
		return models.Sample{}, fmt.Errorf("%w: disk: %v", ErrCountersUnavailable, err)
	}

	latency := s.prober.Probe(ctx)
	if err := ctx.Err(); err != nil {
		return models.Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cpuPercent := s.cpuPercent(busy, total)
	s.storeCPU(busy, total)

	ts := s.now()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts

	return models.Sample{
		Timestamp:      ts,
		CPUUsage:       cpuPercent,
		MemoryUsage:    models.ClampPercent(memPercent),
		DiskIO:         float64(readBytes) / bytesPerMiB,
		NetworkLatency: latency,
	}, nil
}

// cpuPercent mirrors a "since last call" reading: the first call reports 0.
func (s *HostSampler) cpuPercent(busy, total float64) float64 {
	if !s.hasPrev {
		return 0
	}
	deltaTotal := total - s.lastTotal
	if deltaTotal <= 0 {
		return 0
	}
	deltaBusy := busy - s.lastBusy
	if deltaBusy < 0 {
		deltaBusy = 0
	}
	return models.ClampPercent(deltaBusy / deltaTotal * 100)
}

func (s *HostSampler) storeCPU(busy, total float64) {
	s.lastBusy = busy
	s.lastTotal = total
	s.hasPrev = true
}

var _ Sampler = (*HostSampler)(nil)
