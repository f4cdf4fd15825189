package probe

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrProbeTimeout = errors.New("timeout waiting for probe target to respond")

	ErrNoAddresses = errors.New("no addresses found for hostname")

	// ErrNoTestClient indicates a scheduling bug: pool reconciliation
	// must always run before UDP fan-out in the same cycle.
	ErrNoTestClient = errors.New("no test client registered for peer")
)

// Agent identifies a mesh participant.
type Agent struct {
	Name string     `json:"name"`
	Addr netip.Addr `json:"addr"`
}

func (a Agent) String() string {
	if a.Name == "" {
		return a.Addr.String()
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Addr)
}

// Sink receives probe results as they are produced. Implementations are
// best-effort collaborators: nothing they do may abort a probe cycle.
type Sink interface {
	ResetUDPTestResults()
	ResetTCPTestResults()
	HandleUDPTestResult(UDPResult)
	HandleTCPTestResult(TCPResult)
	HandleDNSTestResult(DNSResult)
}

// Config holds the per-protocol probe settings.
type Config struct {
	// Port is the mesh service port peers answer echo and readiness
	// requests on.
	Port uint16

	UDPTimeout time.Duration
	UDPPackets int

	TCPTimeout time.Duration

	DNSTimeout time.Duration
	// Resolvers are tried in order until one answers.
	Resolvers []string
	// Hosts are the names resolved by each DNS cycle.
	Hosts []string
}
