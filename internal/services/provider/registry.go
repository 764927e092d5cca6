package provider

import (
	"fmt"
	"sort"
	"strings"

	"momopay/internal/config"
)

// Registry resolves gateways by provider name.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		if g != nil {
			r.gateways[strings.ToLower(g.Name())] = g
		}
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds every configured gateway over shared deps.
func NewRegistryFromConfig(cfg *config.Config, deps Deps) *Registry {
	return NewRegistry(
		NewAirtel(cfg.Airtel, deps),
		NewMTN(cfg.MTN, deps),
		NewIotec(cfg.Iotec, deps),
	)
}
