package probe

import (
	"context"
	"log/slog"
	"net/http"
)

// Prober runs the three protocol probes against peers and hostnames,
// normalizes the heterogeneous outcomes into pass/fail results with timing
// data, and reports every result to the sink. Probes never return errors:
// any failure past the probe boundary becomes a failed result.
type Prober struct {
	self   Agent
	config Config
	pool   *Pool
	sink   Sink
	logger *slog.Logger
	client *http.Client
}

func NewProber(self Agent, config Config, pool *Pool, sink Sink, logger *slog.Logger) *Prober {
	return &Prober{
		self:   self,
		config: config,
		pool:   pool,
		sink:   sink,
		logger: logger,
		client: newReadinessClient(config.TCPTimeout),
	}
}

// RunUDPTests reconciles the client pool against the peer snapshot and then
// fans the echo probe out across every peer. The returned slice maps 1:1
// onto peers.
func (p *Prober) RunUDPTests(ctx context.Context, peers []Agent) []UDPResult {
	p.pool.Reconcile(peers)

	return runAll(peers, func(peer Agent) UDPResult {
		return p.UDP(ctx, peer)
	})
}

// RunTCPTests fans the readiness probe out across every peer.
func (p *Prober) RunTCPTests(ctx context.Context, peers []Agent) []TCPResult {
	return runAll(peers, func(peer Agent) TCPResult {
		return p.TCP(ctx, peer)
	})
}

// RunDNSTests fans the resolution probe out across the configured hosts.
func (p *Prober) RunDNSTests(ctx context.Context) []DNSResult {
	return runAll(p.config.Hosts, func(host string) DNSResult {
		return p.DNS(ctx, host)
	})
}
