package plugin

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-edge/protocol"
)

// Kind classifies how a plugin entered the gateway.
type Kind string

// Kind constants.
const (
	// KindSystem marks drivers compiled into the gateway binary.
	KindSystem Kind = "system"

	// KindCustom marks drivers loaded from shared-object modules.
	KindCustom Kind = "custom"
)

// Valid reports whether the kind is one of the declared constants.
func (k Kind) Valid() bool {
	return k == KindSystem || k == KindCustom
}

// Meta describes a registered plugin.
type Meta struct {
	Name        string `json:"name"`
	Path        string `json:"path,omitempty"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description,omitempty"`
}

// Handle pairs a live driver with its metadata. Handles are immutable once
// registered; replacing a protocol installs a new handle.
type Handle struct {
	meta   Meta
	driver protocol.Driver
}

// Meta returns the plugin's metadata.
func (h *Handle) Meta() Meta { return h.meta }

// Driver returns the live driver instance.
func (h *Handle) Driver() protocol.Driver { return h.driver }

// Registry maps protocol names to live driver handles. All methods are safe
// for concurrent use; lookups take a read lock so dispatch never serialises
// behind registrations.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Get returns the handle for a protocol name.
func (r *Registry) Get(name string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProtocolNotFound, name)
	}
	return h, nil
}

// Register installs a driver under a new protocol name. Registering a name
// that is already taken fails; callers that want hot swap use Replace.
func (r *Registry) Register(meta Meta, driver protocol.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[meta.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProtocol, meta.Name)
	}
	r.handles[meta.Name] = &Handle{meta: meta, driver: driver}
	r.order = append(r.order, meta.Name)
	return nil
}

// Replace swaps the driver for an existing protocol name and returns the
// displaced driver so the caller can close it. In-flight requests holding
// the old handle finish against the old driver.
func (r *Registry) Replace(meta Meta, driver protocol.Driver) (protocol.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.handles[meta.Name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrProtocolNotFound, meta.Name)
	}
	r.handles[meta.Name] = &Handle{meta: meta, driver: driver}
	return old.driver, nil
}

// Deregister removes a protocol and returns its driver so the caller can
// close it.
func (r *Registry) Deregister(name string) (protocol.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.handles[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrProtocolNotFound, name)
	}
	delete(r.handles, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return h.driver, nil
}

// List returns metadata for every registered plugin in registration order.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Meta, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handles[name].meta)
	}
	return out
}

// Count returns the number of registered protocols.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// CloseAll deregisters every protocol and closes each driver, returning the
// first close error. Used during shutdown.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.order = nil
	r.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := h.driver.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing driver %q: %w", h.meta.Name, err)
		}
	}
	return firstErr
}
