package gateway

import (
	"sort"

	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
)

// Registry resolves gateways by name.
type Registry struct {
	gateways map[string]portsgw.PaymentGateway
}

func NewRegistry(gateways ...portsgw.PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]portsgw.PaymentGateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Name()] = gw
	}
	return r
}

var _ portsgw.GatewayRegistry = (*Registry)(nil)

func (r *Registry) Get(name string) (portsgw.PaymentGateway, bool) {
	gw, ok := r.gateways[name]
	return gw, ok
}

// Names returns the registered gateway names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
