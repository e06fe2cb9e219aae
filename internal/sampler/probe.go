package sampler

import (
	"context"
	"net"
	"time"

	"sysscope/internal/models"
)

// TCPProber measures the time to complete a TCP handshake with Address.
type TCPProber struct {
	Address string
	Timeout time.Duration

	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewTCPProber returns a prober bounded by timeout.
func NewTCPProber(address string, timeout time.Duration) *TCPProber {
	d := &net.Dialer{Timeout: timeout}
	return &TCPProber{Address: address, Timeout: timeout, dial: d.DialContext}
}

// Probe returns the connect latency in milliseconds rounded to two decimals,
// or models.LatencyUnreachable on any failure.
func (p *TCPProber) Probe(ctx context.Context) float64 {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dial(ctx, "tcp", p.Address)
	if err != nil {
		return models.LatencyUnreachable
	}
	elapsed := time.Since(start)
	conn.Close()

	return models.RoundMillis(float64(elapsed) / float64(time.Millisecond))
}

var _ Prober = (*TCPProber)(nil)
