package tester

import (
	"context"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/adaricorp/mesh-prober/probe"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDiscovery serves a swappable agent list.
type fakeDiscovery struct {
	mu     sync.Mutex
	agents []probe.Agent
	err    error
}

func (f *fakeDiscovery) Agents(ctx context.Context) ([]probe.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agents, f.err
}

func (f *fakeDiscovery) set(agents []probe.Agent, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents = agents
	f.err = err
}

// countingSink counts resets and results.
type countingSink struct {
	mu        sync.Mutex
	udpResets int
	tcpResets int
	udp       int
	tcp       int
	dns       int
}

func (s *countingSink) ResetUDPTestResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.udpResets++
}

func (s *countingSink) ResetTCPTestResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tcpResets++
}

func (s *countingSink) HandleUDPTestResult(probe.UDPResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.udp++
}

func (s *countingSink) HandleTCPTestResult(probe.TCPResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tcp++
}

func (s *countingSink) HandleDNSTestResult(probe.DNSResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dns++
}

func (s *countingSink) counts() (int, int, int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.udpResets, s.tcpResets, s.udp, s.tcp, s.dns
}

func agent(name, addr string) probe.Agent {
	return probe.Agent{Name: name, Addr: netip.MustParseAddr(addr)}
}

func newTestTester(disc *fakeDiscovery, sink probe.Sink) (*Tester, *probe.Pool) {
	pool := probe.NewPool(9, testLogger())
	prober := probe.NewProber(agent("self", "127.0.0.9"), probe.Config{
		Port:       9,
		UDPTimeout: 100 * time.Millisecond,
		UDPPackets: 1,
		TCPTimeout: 100 * time.Millisecond,
		DNSTimeout: 100 * time.Millisecond,
		Resolvers:  []string{"127.0.0.1:1"},
		Hosts:      []string{"example.org"},
	}, pool, sink, testLogger())

	t := New(Config{
		UDPInterval: 10 * time.Millisecond,
		TCPInterval: 10 * time.Millisecond,
		DNSInterval: 10 * time.Millisecond,
	}, prober, disc, sink, testLogger())

	return t, pool
}

func TestJitterBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 1000; i++ {
		d := jitter()
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.Less(t, d, 550*time.Millisecond)
	}
}

func TestMembershipSnapshotSwap(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{}
	disc.set([]probe.Agent{agent("a", "127.0.0.1"), agent("b", "127.0.0.2")}, nil)

	sink := &countingSink{}
	ts, pool := newTestTester(disc, sink)
	defer pool.Close()

	ctx := context.Background()

	ts.refreshAgents(ctx)
	require.Len(t, ts.Agents(), 2)

	results := ts.RunUDPTests(ctx)
	require.Len(t, results, 2)
	require.NotNil(t, pool.Get(netip.MustParseAddr("127.0.0.1")))
	require.NotNil(t, pool.Get(netip.MustParseAddr("127.0.0.2")))

	clientA := pool.Get(netip.MustParseAddr("127.0.0.1"))

	// B leaves, C joins.
	disc.set([]probe.Agent{agent("a", "127.0.0.1"), agent("c", "127.0.0.3")}, nil)
	ts.refreshAgents(ctx)
	ts.RunUDPTests(ctx)

	require.Nil(t, pool.Get(netip.MustParseAddr("127.0.0.2")))
	require.NotNil(t, pool.Get(netip.MustParseAddr("127.0.0.3")))
	require.Same(t, clientA, pool.Get(netip.MustParseAddr("127.0.0.1")))
}

func TestRefreshKeepsSnapshotOnError(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{}
	disc.set([]probe.Agent{agent("a", "127.0.0.1")}, nil)

	sink := &countingSink{}
	ts, pool := newTestTester(disc, sink)
	defer pool.Close()

	ctx := context.Background()
	ts.refreshAgents(ctx)
	require.Len(t, ts.Agents(), 1)

	disc.set(nil, context.DeadlineExceeded)
	ts.refreshAgents(ctx)

	// Discovery failure keeps the previous snapshot.
	require.Len(t, ts.Agents(), 1)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{}
	disc.set([]probe.Agent{agent("a", "127.0.0.1")}, nil)

	sink := &countingSink{}
	ts, pool := newTestTester(disc, sink)
	defer pool.Close()

	ctx := context.Background()
	ts.Start(ctx)

	// Starting twice is a no-op.
	ts.Start(ctx)

	time.Sleep(300 * time.Millisecond)

	ts.Stop()
	ts.Stop()

	done := make(chan struct{})
	go func() {
		ts.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loops did not stop")
	}

	udpResets, tcpResets, udp, tcp, dns := sink.counts()
	require.GreaterOrEqual(t, udpResets, 1)
	require.GreaterOrEqual(t, tcpResets, 1)
	require.GreaterOrEqual(t, udp, 1)
	require.GreaterOrEqual(t, tcp, 1)
	require.GreaterOrEqual(t, dns, 1)
}
