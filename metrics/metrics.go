// Package metrics provides the sinks probe results are reported to: a
// Prometheus registry for scraping and an in-memory status view for the
// admin endpoint.
package metrics

import "github.com/adaricorp/mesh-prober/probe"

// MultiSink fans every report out to each wrapped sink in order.
type MultiSink []probe.Sink

func (m MultiSink) ResetUDPTestResults() {
	for _, sink := range m {
		sink.ResetUDPTestResults()
	}
}

func (m MultiSink) ResetTCPTestResults() {
	for _, sink := range m {
		sink.ResetTCPTestResults()
	}
}

func (m MultiSink) HandleUDPTestResult(result probe.UDPResult) {
	for _, sink := range m {
		sink.HandleUDPTestResult(result)
	}
}

func (m MultiSink) HandleTCPTestResult(result probe.TCPResult) {
	for _, sink := range m {
		sink.HandleTCPTestResult(result)
	}
}

func (m MultiSink) HandleDNSTestResult(result probe.DNSResult) {
	for _, sink := range m {
		sink.HandleDNSTestResult(result)
	}
}
