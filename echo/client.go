// Package echo implements the UDP echo protocol mesh nodes use to measure
// reachability and round-trip time between each other. Every node runs a
// Responder on the mesh service port; a Client is bound to exactly one peer
// and sends bursts of sequenced datagrams that the peer echoes back.
package echo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const echoPrefix = "mesh-echo:"

// Stats summarizes one echo ping run.
type Stats struct {
	Sent   int
	Recv   int
	Loss   int
	MinRTT time.Duration
	AvgRTT time.Duration
	MaxRTT time.Duration
}

// Client is a stateful echo prober bound to a single peer. It owns a UDP
// socket for its whole lifetime and must be closed explicitly when the peer
// leaves the mesh.
type Client struct {
	peer *net.UDPAddr
	conn *net.UDPConn

	mu        sync.Mutex
	closeOnce sync.Once
}

// NewClient binds a local UDP socket for probing the given peer.
func NewClient(peer netip.AddrPort) (*Client, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not bind echo socket for peer %s", peer)
	}

	return &Client{
		peer: net.UDPAddrFromAddrPort(peer),
		conn: conn,
	}, nil
}

// Ping sends count echo datagrams to the peer and waits up to timeout for
// the replies. Unanswered datagrams are counted as loss, not as an error;
// an error is only returned for socket-level failures.
func (c *Client) Ping(ctx context.Context, timeout time.Duration, count int) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if count <= 0 {
		return Stats{}, errors.New("packet count must be > 0")
	}

	nonce, err := randomNonce(8)
	if err != nil {
		return Stats{}, err
	}

	sentAt := make([]time.Time, count)
	for seq := 0; seq < count; seq++ {
		payload := []byte(fmt.Sprintf("%s%s:%08d", echoPrefix, nonce, seq))
		sentAt[seq] = time.Now()
		if _, err := c.conn.WriteToUDP(payload, c.peer); err != nil {
			return Stats{Sent: seq}, errors.Wrapf(err, "Could not send echo datagram to %s", c.peer)
		}
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return Stats{Sent: count}, errors.Wrap(err, "Could not arm read deadline")
	}

	stats := Stats{Sent: count}
	received := make([]bool, count)
	var totalRTT time.Duration

	buf := make([]byte, 512)
	for stats.Recv < count {
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			// Deadline expired or the socket was closed: whatever is
			// still outstanding is loss.
			break
		}
		if addr.String() != c.peer.String() {
			continue
		}

		seq, ok := parseReply(string(buf[:n]), nonce)
		if !ok || seq >= count || received[seq] {
			continue
		}
		received[seq] = true

		rtt := time.Since(sentAt[seq])
		stats.Recv++
		totalRTT += rtt
		if stats.MinRTT == 0 || rtt < stats.MinRTT {
			stats.MinRTT = rtt
		}
		if rtt > stats.MaxRTT {
			stats.MaxRTT = rtt
		}

		if err := ctx.Err(); err != nil {
			break
		}
	}

	stats.Loss = stats.Sent - stats.Recv
	if stats.Recv > 0 {
		stats.AvgRTT = totalRTT / time.Duration(stats.Recv)
	}

	return stats, nil
}

// Close releases the client's socket. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func parseReply(msg, nonce string) (int, bool) {
	body, ok := strings.CutPrefix(msg, echoPrefix)
	if !ok {
		return 0, false
	}
	replyNonce, seqStr, ok := strings.Cut(body, ":")
	if !ok || replyNonce != nonce {
		return 0, false
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

func randomNonce(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "Could not generate nonce")
	}
	return hex.EncodeToString(buf), nil
}
