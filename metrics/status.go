package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/adaricorp/mesh-prober/probe"
)

// TargetStatus is the latest known probe outcome for one protocol/target
// pair, as served by the admin endpoint.
type TargetStatus struct {
	Protocol   string `json:"protocol"`
	Target     string `json:"target"`
	Healthy    bool   `json:"healthy"`
	LastProbe  int64  `json:"last_probe"`
	LastChange int64  `json:"last_change"`
}

// StatusSink keeps the latest result per protocol and target. Cycle resets
// are ignored: the status view always shows the last observation.
type StatusSink struct {
	statuses sync.Map
}

func NewStatusSink() *StatusSink {
	return &StatusSink{}
}

func (s *StatusSink) ResetUDPTestResults() {}

func (s *StatusSink) ResetTCPTestResults() {}

func (s *StatusSink) HandleUDPTestResult(result probe.UDPResult) {
	s.update("udp", result.Destination.Name, result.Passed)
}

func (s *StatusSink) HandleTCPTestResult(result probe.TCPResult) {
	s.update("tcp", result.Destination.Name, result.Passed)
}

func (s *StatusSink) HandleDNSTestResult(result probe.DNSResult) {
	s.update("dns", result.Host, result.Passed)
}

// Statuses returns a snapshot of the latest statuses, sorted by protocol
// and target.
func (s *StatusSink) Statuses() []TargetStatus {
	statuses := []TargetStatus{}

	s.statuses.Range(func(key, val interface{}) bool {
		switch v := val.(type) {
		case TargetStatus:
			statuses = append(statuses, v)
		}

		return true
	})

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Protocol != statuses[j].Protocol {
			return statuses[i].Protocol < statuses[j].Protocol
		}
		return statuses[i].Target < statuses[j].Target
	})

	return statuses
}

func (s *StatusSink) update(protocol, target string, healthy bool) {
	now := time.Now().Unix()
	key := protocol + "/" + target

	last, exists := s.statuses.Load(key)
	if !exists {
		s.statuses.Store(key, TargetStatus{
			Protocol:   protocol,
			Target:     target,
			Healthy:    healthy,
			LastProbe:  now,
			LastChange: now,
		})
		return
	}

	switch v := last.(type) {
	case TargetStatus:
		v.LastProbe = now

		if v.Healthy != healthy {
			v.Healthy = healthy
			v.LastChange = now
		}

		s.statuses.Store(key, v)
	}
}
