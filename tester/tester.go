// Package tester drives the periodic probe cycles: four independent loops
// (membership refresh plus one per protocol) that run until stopped,
// sharing nothing but the latest peer snapshot.
package tester

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adaricorp/mesh-prober/discovery"
	"github.com/adaricorp/mesh-prober/probe"
)

const (
	// Membership refresh cadence is fixed and unjittered: it carries no
	// probe traffic, so fleet-wide synchronization doesn't matter.
	membershipInterval = 5 * time.Second

	jitterFloor = 100 * time.Millisecond
	jitterSpan  = 450 * time.Millisecond
)

// Config holds the per-protocol cycle intervals.
type Config struct {
	UDPInterval time.Duration
	TCPInterval time.Duration
	DNSInterval time.Duration
}

// Tester composes the prober, the discovery collaborator, and the sink into
// the long-running probing agent.
type Tester struct {
	config Config
	prober *probe.Prober
	disc   discovery.Discovery
	sink   probe.Sink
	logger *slog.Logger

	mu     sync.RWMutex
	agents []probe.Agent

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func New(
	config Config,
	prober *probe.Prober,
	disc discovery.Discovery,
	sink probe.Sink,
	logger *slog.Logger,
) *Tester {
	return &Tester{
		config: config,
		prober: prober,
		disc:   disc,
		sink:   sink,
		logger: logger,
	}
}

// Start fetches an initial membership snapshot and launches the four loops.
// It returns immediately; the loops run until Stop is called.
func (t *Tester) Start(ctx context.Context) {
	if !t.running.CompareAndSwap(false, true) {
		return
	}
	t.stop = make(chan struct{})

	t.refreshAgents(ctx)

	t.wg.Add(4)
	go t.loop(ctx, membershipInterval, false, t.refreshAgents)
	go t.loop(ctx, t.config.UDPInterval, true, t.udpCycle)
	go t.loop(ctx, t.config.TCPInterval, true, t.tcpCycle)
	go t.loop(ctx, t.config.DNSInterval, true, t.dnsCycle)
}

// Stop prevents the next iteration of every loop from starting. It does not
// cancel work mid-cycle: a fan-out already dispatched runs to completion,
// so clients and sockets may still be live when Stop returns. Use Wait to
// join the loops.
func (t *Tester) Stop() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	close(t.stop)
}

// Wait blocks until every loop has exited.
func (t *Tester) Wait() {
	t.wg.Wait()
}

// Agents returns the latest membership snapshot.
func (t *Tester) Agents() []probe.Agent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.agents
}

// RunUDPTests runs one echo probe cycle across the current peer snapshot.
func (t *Tester) RunUDPTests(ctx context.Context) []probe.UDPResult {
	return t.prober.RunUDPTests(ctx, t.Agents())
}

// RunTCPTests runs one readiness probe cycle across the current peer
// snapshot.
func (t *Tester) RunTCPTests(ctx context.Context) []probe.TCPResult {
	return t.prober.RunTCPTests(ctx, t.Agents())
}

// RunDNSTests runs one resolution probe cycle across the configured hosts.
func (t *Tester) RunDNSTests(ctx context.Context) []probe.DNSResult {
	return t.prober.RunDNSTests(ctx)
}

// loop runs cycle, sleeps, and repeats until Stop is called. The running
// flag is only observed at the top of an iteration, never mid-cycle.
func (t *Tester) loop(
	ctx context.Context,
	interval time.Duration,
	jittered bool,
	cycle func(context.Context),
) {
	defer t.wg.Done()

	for t.running.Load() {
		cycle(ctx)

		delay := interval
		if jittered {
			delay += jitter()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.stop:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (t *Tester) udpCycle(ctx context.Context) {
	t.sink.ResetUDPTestResults()
	t.RunUDPTests(ctx)
}

func (t *Tester) tcpCycle(ctx context.Context) {
	t.sink.ResetTCPTestResults()
	t.RunTCPTests(ctx)
}

func (t *Tester) dnsCycle(ctx context.Context) {
	t.RunDNSTests(ctx)
}

func (t *Tester) refreshAgents(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, membershipInterval)
	defer cancel()

	agents, err := t.disc.Agents(ctx)
	if err != nil {
		// Keep probing the previous snapshot until discovery recovers.
		t.logger.Warn(
			"Couldn't refresh mesh membership",
			"error",
			err.Error(),
		)
		return
	}

	t.mu.Lock()
	t.agents = agents
	t.mu.Unlock()

	t.logger.Debug("Refreshed mesh membership", "agents", len(agents))
}

// jitter returns a uniformly distributed delay in [100ms, 550ms),
// independently sampled per loop iteration, so that identically configured
// nodes don't probe in lockstep.
func jitter() time.Duration {
	return jitterFloor + time.Duration(rand.Int63n(int64(jitterSpan)))
}
