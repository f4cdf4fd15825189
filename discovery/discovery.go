// Package discovery resolves the current mesh membership. The probing core
// only depends on the Discovery interface; where the peer set actually
// comes from (static configuration, an HTTP registry) is pluggable.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/adaricorp/mesh-prober/probe"
	"github.com/pkg/errors"
)

// Discovery returns the current mesh membership. Implementations may cache
// internally; the scheduler calls this once per membership tick.
type Discovery interface {
	Agents(ctx context.Context) ([]probe.Agent, error)
}

// Static serves a fixed peer list taken from configuration.
type Static struct {
	agents []probe.Agent
}

func NewStatic(agents []probe.Agent) *Static {
	return &Static{agents: agents}
}

func (s *Static) Agents(ctx context.Context) ([]probe.Agent, error) {
	return slices.Clone(s.agents), nil
}

// Registry fetches membership from an HTTP registry that returns a JSON
// agent list.
type Registry struct {
	url    string
	client *http.Client
}

func NewRegistry(url string, timeout time.Duration) *Registry {
	return &Registry{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (r *Registry) Agents(ctx context.Context) ([]probe.Agent, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not create registry request")
	}

	response, err := r.client.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not fetch agent list from %s", r.url)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", response.StatusCode)
	}

	var agents []probe.Agent
	if err := json.NewDecoder(response.Body).Decode(&agents); err != nil {
		return nil, errors.Wrapf(err, "Could not parse agent list from %s", r.url)
	}

	return agents, nil
}
