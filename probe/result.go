package probe

import (
	"net/netip"
	"time"
)

// UDPResult is the outcome of one echo ping run against a peer. Packet and
// round-trip detail is attached whether the probe passed or not; a probe
// that failed before any packet left keeps the zero counts.
type UDPResult struct {
	Source      Agent `json:"source"`
	Destination Agent `json:"destination"`
	Passed      bool  `json:"passed"`

	PacketsSent int           `json:"packets_sent"`
	PacketsRecv int           `json:"packets_recv"`
	Loss        int           `json:"loss"`
	MinRTT      time.Duration `json:"min_rtt"`
	AvgRTT      time.Duration `json:"avg_rtt"`
	MaxRTT      time.Duration `json:"max_rtt"`
}

// TCPTimings breaks down one readiness request.
type TCPTimings struct {
	Connect      time.Duration `json:"connect"`
	TimeToFirstB time.Duration `json:"time_to_first_byte"`
	Total        time.Duration `json:"total"`
}

// TCPResult is the outcome of one readiness request against a peer.
// Timings is nil when the request failed.
type TCPResult struct {
	Source      Agent       `json:"source"`
	Destination Agent       `json:"destination"`
	Passed      bool        `json:"passed"`
	Timings     *TCPTimings `json:"timings,omitempty"`
}

// DNSResult is the outcome of one resolution attempt. DurationMs covers the
// whole attempt, including resolver failover, and is attached whether the
// probe passed or not.
type DNSResult struct {
	Source     Agent        `json:"source"`
	Host       string       `json:"host"`
	Passed     bool         `json:"passed"`
	DurationMs float64      `json:"duration_ms"`
	Addrs      []netip.Addr `json:"addrs,omitempty"`
}
