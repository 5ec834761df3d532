package cds

import "sync"

// HookHandler evaluates one registered CDS service against a request and
// returns the cards (and optional system actions) it contributes. A
// HookHandler must be safe to invoke concurrently with itself across
// different requests (spec §5).
type HookHandler interface {
	Descriptor() ServiceDescriptor
	Invoke(req Request) (Response, error)
}

type registration struct {
	descriptor ServiceDescriptor
	handler    HookHandler
}

// Registry holds CDS services keyed by serviceId. Re-registering an id
// already present replaces the existing handler and logs a warning.
type Registry struct {
	mu       sync.RWMutex
	services map[string]registration
	order    []string // registration order of distinct service IDs
	logger   logger
}

type logger interface {
	Warn(format string, args ...interface{})
}

// NewRegistry creates an empty Registry.
func NewRegistry(lg logger) *Registry {
	return &Registry{
		services: make(map[string]registration),
		logger:   lg,
	}
}

// Register adds h under its own descriptor's ID.
func (r *Registry) Register(h HookHandler) {
	desc := h.Descriptor()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[desc.ID]; exists {
		if r.logger != nil {
			r.logger.Warn("cds: replacing existing service registration for %q", desc.ID)
		}
	} else {
		r.order = append(r.order, desc.ID)
	}
	r.services[desc.ID] = registration{descriptor: desc, handler: h}
}

// Discovery returns every registered service's descriptor, in no particular
// order. Handler internals are never exposed.
func (r *Registry) Discovery() []ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ServiceDescriptor, 0, len(r.services))
	for _, reg := range r.services {
		out = append(out, reg.descriptor)
	}
	return out
}

// ByID returns the handler registered under serviceID.
func (r *Registry) ByID(serviceID string) (HookHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.services[serviceID]
	if !ok {
		return nil, false
	}
	return reg.handler, true
}

// ForHook returns every handler registered for hookName, in a stable order
// determined by the order descriptors were registered (spec §5: "card
// aggregation order matches handler-registration order").
func (r *Registry) ForHook(hookName string) []HookHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HookHandler, 0, len(r.services))
	for _, id := range r.order {
		reg, ok := r.services[id]
		if ok && reg.descriptor.Hook == hookName {
			out = append(out, reg.handler)
		}
	}
	return out
}
