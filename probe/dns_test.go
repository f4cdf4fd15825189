package probe

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func dnsServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{PacketConn: pc, Handler: handler}
	go func() {
		_ = server.ActivateAndServe()
	}()
	t.Cleanup(func() {
		_ = server.Shutdown()
	})

	return pc.LocalAddr().String()
}

func answeringHandler(delay time.Duration) dns.HandlerFunc {
	return func(w dns.ResponseWriter, req *dns.Msg) {
		if delay > 0 {
			time.Sleep(delay)
		}
		reply := new(dns.Msg)
		reply.SetReply(req)
		reply.Answer = append(reply.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   req.Question[0].Name,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			A: net.IPv4(192, 0, 2, 1),
		})
		_ = w.WriteMsg(reply)
	}
}

func emptyHandler(w dns.ResponseWriter, req *dns.Msg) {
	reply := new(dns.Msg)
	reply.SetReply(req)
	_ = w.WriteMsg(reply)
}

func newDNSProber(sink Sink, resolvers []string, timeout time.Duration) *Prober {
	return NewProber(testAgent("self", "127.0.0.9"), Config{
		DNSTimeout: timeout,
		Resolvers:  resolvers,
		Hosts:      []string{"example.org"},
	}, NewPool(9, testLogger()), sink, testLogger())
}

func TestDNSProbePass(t *testing.T) {
	t.Parallel()

	resolver := dnsServer(t, answeringHandler(0))

	sink := &recordSink{}
	prober := newDNSProber(sink, []string{resolver}, 2*time.Second)

	results := prober.RunDNSTests(context.Background())
	require.Len(t, results, 1)

	result := results[0]
	require.True(t, result.Passed)
	require.Equal(t, "example.org", result.Host)
	require.Contains(t, result.Addrs, netip.MustParseAddr("192.0.2.1"))
	require.GreaterOrEqual(t, result.DurationMs, 0.0)

	require.Len(t, sink.dnsResults(), 1)
}

func TestDNSProbeEmptyAnswerFails(t *testing.T) {
	t.Parallel()

	resolver := dnsServer(t, emptyHandler)

	sink := &recordSink{}
	prober := newDNSProber(sink, []string{resolver}, 2*time.Second)

	result := prober.DNS(context.Background(), "example.org")

	require.False(t, result.Passed)
	require.Empty(t, result.Addrs)
	require.GreaterOrEqual(t, result.DurationMs, 0.0)
}

func TestDNSProbeUnreachableResolverFails(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	prober := newDNSProber(sink, []string{"127.0.0.1:1"}, 300*time.Millisecond)

	result := prober.DNS(context.Background(), "example.org")

	require.False(t, result.Passed)
	require.GreaterOrEqual(t, result.DurationMs, 0.0)
}

func TestDNSProbeDurationCoversWholeAttempt(t *testing.T) {
	t.Parallel()

	// A deliberately slow resolver: the reported duration must reflect
	// the full elapsed time, not a sub-second residual.
	resolver := dnsServer(t, answeringHandler(50*time.Millisecond))

	sink := &recordSink{}
	prober := newDNSProber(sink, []string{resolver}, 2*time.Second)

	result := prober.DNS(context.Background(), "example.org")

	require.True(t, result.Passed)
	require.GreaterOrEqual(t, result.DurationMs, 50.0)
}

func TestDNSProbeResolverFailover(t *testing.T) {
	t.Parallel()

	working := dnsServer(t, answeringHandler(0))

	sink := &recordSink{}
	prober := newDNSProber(sink, []string{"127.0.0.1:1", working}, 300*time.Millisecond)

	result := prober.DNS(context.Background(), "example.org")

	require.True(t, result.Passed)
	require.Contains(t, result.Addrs, netip.MustParseAddr("192.0.2.1"))
}
