package probe

import (
	"io"
	"log/slog"
	"sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordSink captures everything reported to it.
type recordSink struct {
	mu        sync.Mutex
	udpResets int
	tcpResets int
	udp       []UDPResult
	tcp       []TCPResult
	dns       []DNSResult
}

func (s *recordSink) ResetUDPTestResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.udpResets++
}

func (s *recordSink) ResetTCPTestResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tcpResets++
}

func (s *recordSink) HandleUDPTestResult(result UDPResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.udp = append(s.udp, result)
}

func (s *recordSink) HandleTCPTestResult(result TCPResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tcp = append(s.tcp, result)
}

func (s *recordSink) HandleDNSTestResult(result DNSResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dns = append(s.dns, result)
}

func (s *recordSink) udpResults() []UDPResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UDPResult{}, s.udp...)
}

func (s *recordSink) tcpResults() []TCPResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TCPResult{}, s.tcp...)
}

func (s *recordSink) dnsResults() []DNSResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DNSResult{}, s.dns...)
}
