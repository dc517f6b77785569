package gpucore

import (
	"errors"
	"slices"
	"sync"
)

// Backend identifies a device backend, such as "vulkan" or "software".
type Backend string

// String returns the backend name.
func (b Backend) String() string { return string(b) }

// Provider opens devices for one backend.
// Backend packages register a Provider from init().
type Provider interface {
	// Name returns the backend identifier.
	Name() Backend

	// Available reports whether the backend can open a device on this host.
	Available() bool

	// Open creates a device. Whatever the backend needs to obtain a device
	// (instance, adapter, offscreen surface) is owned by the returned Device
	// and released by Device.Destroy.
	Open() (Device, error)
}

// ErrBackendNotRegistered is returned by Open for unknown backends.
var ErrBackendNotRegistered = errors.New("gpucore: backend not registered")

// registry holds registered providers.
var (
	registryMu sync.RWMutex
	providers  = make(map[Backend]Provider)
)

// Register registers a provider under its name.
// If a provider with the same name is already registered, it is replaced.
func Register(p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[p.Name()] = p
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(providers, name)
}

// Lookup returns the provider registered under name.
func Lookup(name Backend) (Provider, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// Backends returns the registered backend names in sorted order.
func Backends() []Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]Backend, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsSupported reports whether name is registered and available.
func IsSupported(name Backend) bool {
	p, ok := Lookup(name)
	return ok && p.Available()
}

// Open opens a device on the named backend.
func Open(name Backend) (Device, error) {
	p, ok := Lookup(name)
	if !ok {
		return nil, ErrBackendNotRegistered
	}
	return p.Open()
}
