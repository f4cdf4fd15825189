package probe

import (
	"log/slog"
	"net/netip"
	"sync"

	"github.com/adaricorp/mesh-prober/echo"
)

// Pool owns exactly one echo test client per known peer address. Clients
// hold live sockets, so departure from the mesh must destroy them
// explicitly rather than leaving them to the garbage collector.
type Pool struct {
	port   uint16
	logger *slog.Logger

	mu      sync.Mutex
	clients map[netip.Addr]*echo.Client
}

func NewPool(port uint16, logger *slog.Logger) *Pool {
	return &Pool{
		port:    port,
		logger:  logger,
		clients: map[netip.Addr]*echo.Client{},
	}
}

// Reconcile brings the pool into agreement with the latest membership
// snapshot: a client is created for every peer seen for the first time and
// destroyed for every registered peer absent from the snapshot. Calling it
// again with an unchanged set is a no-op.
func (p *Pool) Reconcile(peers []Agent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := map[netip.Addr]bool{}
	for _, peer := range peers {
		current[peer.Addr] = true

		if _, exists := p.clients[peer.Addr]; exists {
			continue
		}

		client, err := echo.NewClient(netip.AddrPortFrom(peer.Addr, p.port))
		if err != nil {
			p.logger.Error(
				"Couldn't create test client",
				"peer",
				peer.String(),
				"error",
				err.Error(),
			)
			continue
		}
		p.clients[peer.Addr] = client

		p.logger.Debug("Registered test client", "peer", peer.String())
	}

	for addr, client := range p.clients {
		if current[addr] {
			continue
		}

		if err := client.Close(); err != nil {
			p.logger.Warn(
				"Error destroying test client",
				"peer",
				addr.String(),
				"error",
				err.Error(),
			)
		}
		delete(p.clients, addr)

		p.logger.Debug("Destroyed test client", "peer", addr.String())
	}
}

// Get returns the client registered for the peer address, or nil if the
// peer is unknown to the pool.
func (p *Pool) Get(addr netip.Addr) *echo.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.clients[addr]
}

// Len returns the number of registered clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.clients)
}

// Close destroys every registered client. Used on shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for addr, client := range p.clients {
		_ = client.Close()
		delete(p.clients, addr)
	}
}
