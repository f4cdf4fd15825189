package probe

import (
	"context"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// DNS resolves the host's IPv4 address records against the configured
// resolvers, trying each in order until one answers. At least one address
// passes the probe; an empty answer or a resolution error fails it. The
// duration covers the whole attempt, start to finish, in fractional
// milliseconds and is attached whether the probe passed or not.
func (p *Prober) DNS(ctx context.Context, host string) DNSResult {
	result := DNSResult{
		Source: p.self,
		Host:   host,
	}

	client := &dns.Client{Timeout: p.config.DNSTimeout}
	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(host), dns.TypeA)

	start := time.Now()

	var addrs []netip.Addr
	var lastErr error
	for _, resolver := range p.config.Resolvers {
		response, _, err := client.ExchangeContext(ctx, query, resolver)
		if err != nil {
			lastErr = err
			p.logger.Warn(
				"Error resolving host",
				"source",
				p.self.String(),
				"host",
				host,
				"resolver",
				resolver,
				"error",
				err.Error(),
			)
			continue
		}

		for _, rr := range response.Answer {
			a, ok := rr.(*dns.A)
			if !ok {
				continue
			}
			if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
				addrs = append(addrs, addr)
			}
		}

		// An answer, even an empty one, is authoritative for this cycle.
		break
	}

	result.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	if len(addrs) == 0 {
		if lastErr == nil {
			lastErr = ErrNoAddresses
		}
		p.logger.Warn(
			"Host did not resolve to any IPv4 address",
			"source",
			p.self.String(),
			"host",
			host,
			"error",
			lastErr.Error(),
		)
		p.sink.HandleDNSTestResult(result)
		return result
	}

	result.Passed = true
	result.Addrs = addrs

	p.sink.HandleDNSTestResult(result)
	return result
}
