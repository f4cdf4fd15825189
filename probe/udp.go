package probe

import "context"

// UDP runs one echo ping against the peer's registered test client. A
// reported packet loss greater than zero fails the probe, with the full
// packet and round-trip detail attached either way. A missing client is a
// cycle-ordering bug and is logged as such.
func (p *Prober) UDP(ctx context.Context, peer Agent) UDPResult {
	result := UDPResult{
		Source:      p.self,
		Destination: peer,
	}

	client := p.pool.Get(peer.Addr)
	if client == nil {
		p.logger.Error(
			"Invariant violation, probing peer with no test client",
			"source",
			p.self.String(),
			"destination",
			peer.String(),
			"error",
			ErrNoTestClient.Error(),
		)
		p.sink.HandleUDPTestResult(result)
		return result
	}

	stats, err := client.Ping(ctx, p.config.UDPTimeout, p.config.UDPPackets)
	if err != nil {
		p.logger.Warn(
			"Error running echo ping",
			"source",
			p.self.String(),
			"destination",
			peer.String(),
			"error",
			err.Error(),
		)
		p.sink.HandleUDPTestResult(result)
		return result
	}

	result.PacketsSent = stats.Sent
	result.PacketsRecv = stats.Recv
	result.Loss = stats.Loss
	result.MinRTT = stats.MinRTT
	result.AvgRTT = stats.AvgRTT
	result.MaxRTT = stats.MaxRTT
	result.Passed = stats.Loss == 0

	if !result.Passed {
		p.logger.Warn(
			"Peer is dropping echo packets",
			"source",
			p.self.String(),
			"destination",
			peer.String(),
			"loss",
			stats.Loss,
		)
	}

	p.sink.HandleUDPTestResult(result)
	return result
}
