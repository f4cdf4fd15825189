package metrics

import (
	"github.com/adaricorp/mesh-prober/probe"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mesh_prober"

// PrometheusSink exposes the latest probe results as gauges, one label set
// per peer or host. Resetting a protocol clears its vectors so peers that
// left the mesh stop being exported.
type PrometheusSink struct {
	udpUp   *prometheus.GaugeVec
	udpLoss *prometheus.GaugeVec
	udpRTT  *prometheus.GaugeVec

	tcpUp      *prometheus.GaugeVec
	tcpConnect *prometheus.GaugeVec
	tcpTTFB    *prometheus.GaugeVec

	dnsUp       *prometheus.GaugeVec
	dnsDuration *prometheus.GaugeVec
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	sink := &PrometheusSink{
		udpUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "probe_success",
			Help:      "Whether the last echo probe of the peer passed.",
		}, []string{"peer"}),
		udpLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "packets_lost",
			Help:      "Echo packets lost in the last probe of the peer.",
		}, []string{"peer"}),
		udpRTT: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "rtt_seconds",
			Help:      "Average echo round-trip time in the last probe of the peer.",
		}, []string{"peer"}),
		tcpUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "probe_success",
			Help:      "Whether the last readiness probe of the peer passed.",
		}, []string{"peer"}),
		tcpConnect: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "connect_seconds",
			Help:      "Connection establishment time of the last readiness probe.",
		}, []string{"peer"}),
		tcpTTFB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "time_to_first_byte_seconds",
			Help:      "Time to first response byte of the last readiness probe.",
		}, []string{"peer"}),
		dnsUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dns",
			Name:      "probe_success",
			Help:      "Whether the last resolution of the host passed.",
		}, []string{"host"}),
		dnsDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dns",
			Name:      "resolution_seconds",
			Help:      "Duration of the last resolution of the host.",
		}, []string{"host"}),
	}

	reg.MustRegister(
		sink.udpUp,
		sink.udpLoss,
		sink.udpRTT,
		sink.tcpUp,
		sink.tcpConnect,
		sink.tcpTTFB,
		sink.dnsUp,
		sink.dnsDuration,
	)

	return sink
}

func (s *PrometheusSink) ResetUDPTestResults() {
	s.udpUp.Reset()
	s.udpLoss.Reset()
	s.udpRTT.Reset()
}

func (s *PrometheusSink) ResetTCPTestResults() {
	s.tcpUp.Reset()
	s.tcpConnect.Reset()
	s.tcpTTFB.Reset()
}

func (s *PrometheusSink) HandleUDPTestResult(result probe.UDPResult) {
	peer := result.Destination.Name
	s.udpUp.WithLabelValues(peer).Set(boolToFloat(result.Passed))
	s.udpLoss.WithLabelValues(peer).Set(float64(result.Loss))
	if result.PacketsRecv > 0 {
		s.udpRTT.WithLabelValues(peer).Set(result.AvgRTT.Seconds())
	}
}

func (s *PrometheusSink) HandleTCPTestResult(result probe.TCPResult) {
	peer := result.Destination.Name
	s.tcpUp.WithLabelValues(peer).Set(boolToFloat(result.Passed))
	if result.Timings != nil {
		s.tcpConnect.WithLabelValues(peer).Set(result.Timings.Connect.Seconds())
		s.tcpTTFB.WithLabelValues(peer).Set(result.Timings.TimeToFirstB.Seconds())
	}
}

func (s *PrometheusSink) HandleDNSTestResult(result probe.DNSResult) {
	s.dnsUp.WithLabelValues(result.Host).Set(boolToFloat(result.Passed))
	s.dnsDuration.WithLabelValues(result.Host).Set(result.DurationMs / 1000.0)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
