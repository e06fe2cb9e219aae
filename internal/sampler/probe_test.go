package sampler

import (
	"context"
	"net"
	"testing"
	"time"

	"sysscope/internal/models"
)

func TestTCPProberMeasuresReachableHost(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewTCPProber(ln.Addr().String(), time.Second)
	latency := p.Probe(context.Background())
	if latency == models.LatencyUnreachable {
		t.Fatal("expected a real latency for a listening port")
	}
	if latency < 0 || latency >= 1000 {
		t.Fatalf("latency out of range: %f", latency)
	}
}

func TestTCPProberRefusedMapsToSentinel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := NewTCPProber(addr, time.Second)
	if got := p.Probe(context.Background()); got != models.LatencyUnreachable {
		t.Fatalf("expected sentinel for refused connection, got %f", got)
	}
}

func TestTCPProberTimeoutMapsToSentinel(t *testing.T) {
	p := NewTCPProber("192.0.2.1:53", 50*time.Millisecond)
	p.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	if got := p.Probe(context.Background()); got != models.LatencyUnreachable {
		t.Fatalf("expected sentinel on timeout, got %f", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("probe did not respect its timeout: %v", elapsed)
	}
}
