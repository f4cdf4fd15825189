package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/netip"
	"time"

	"github.com/prometheus/common/version"
)

var userAgent = fmt.Sprintf("Adari mesh prober/%s", version.Version)

func newReadinessClient(timeout time.Duration) *http.Client {
	client := &http.Client{
		Transport: &http.Transport{
			// Fresh connection per probe so connect timing is real.
			DisableKeepAlives: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Don't follow redirects
			return http.ErrUseLastResponse
		},
	}

	if timeout > 0 {
		client.Timeout = timeout
	}

	return client
}

// TCP issues one readiness request to the peer's mesh service port. Any
// transport-level success passes the probe with a connect/first-byte/total
// timing breakdown attached; a transport error or timeout fails it with no
// timings.
func (p *Prober) TCP(ctx context.Context, peer Agent) TCPResult {
	result := TCPResult{
		Source:      p.self,
		Destination: peer,
	}

	target := fmt.Sprintf(
		"http://%s/readiness",
		netip.AddrPortFrom(peer.Addr, p.config.Port),
	)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		p.logger.Warn(
			"Error creating readiness request",
			"source",
			p.self.String(),
			"destination",
			peer.String(),
			"error",
			err.Error(),
		)
		p.sink.HandleTCPTestResult(result)
		return result
	}
	request.Header.Set("User-Agent", userAgent)

	var connectDone, firstByte time.Time
	trace := &httptrace.ClientTrace{
		ConnectDone: func(network, addr string, err error) {
			connectDone = time.Now()
		},
		GotFirstResponseByte: func() {
			firstByte = time.Now()
		},
	}
	request = request.WithContext(httptrace.WithClientTrace(request.Context(), trace))

	start := time.Now()
	response, err := p.client.Do(request)
	if err != nil {
		p.logger.Warn(
			"Peer readiness endpoint is unreachable",
			"source",
			p.self.String(),
			"destination",
			peer.String(),
			"error",
			err.Error(),
		)
		p.sink.HandleTCPTestResult(result)
		return result
	}
	_, _ = io.Copy(io.Discard, response.Body)
	response.Body.Close()

	timings := &TCPTimings{Total: time.Since(start)}
	if !connectDone.IsZero() {
		timings.Connect = connectDone.Sub(start)
	}
	if !firstByte.IsZero() {
		timings.TimeToFirstB = firstByte.Sub(start)
	}

	result.Passed = true
	result.Timings = timings

	p.sink.HandleTCPTestResult(result)
	return result
}
