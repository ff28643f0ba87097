// Package resolver maps a cluster vendor to the implementation of a
// capability for that vendor. Registries are filled once at bootstrap and
// only read afterwards.
package resolver

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/cuemby/clusterscope/pkg/types"
)

// Capability names a vendor specific concern
type Capability string

const (
	CapabilityServiceStatus Capability = "service-status"
	CapabilityLogSearch     Capability = "log-search"
	CapabilityJarSearch     Capability = "jar-search"
)

// ErrUnresolvedImplementation is matched by every resolution failure
var ErrUnresolvedImplementation = errors.New("implementation not resolved")

// UnresolvedImplementationError reports a configuration gap: nothing is
// registered for the capability and vendor. It is never retryable.
type UnresolvedImplementationError struct {
	Capability Capability
	Vendor     types.Vendor
}

func (e *UnresolvedImplementationError) Error() string {
	return fmt.Sprintf("can't find %s implementation for vendor %q", e.Capability, e.Vendor)
}

func (e *UnresolvedImplementationError) Is(target error) bool {
	return target == ErrUnresolvedImplementation
}

// Registry resolves one capability by vendor
type Registry[T any] struct {
	capability Capability

	mu    sync.RWMutex
	impls map[types.Vendor]T
}

// NewRegistry creates an empty registry for a capability
func NewRegistry[T any](capability Capability) *Registry[T] {
	return &Registry[T]{
		capability: capability,
		impls:      make(map[types.Vendor]T),
	}
}

// Register binds an implementation to a vendor, replacing any previous one.
// Registering a nil implementation removes the binding, so Resolve never
// returns nil without an error.
func (r *Registry[T]) Register(vendor types.Vendor, impl T) *Registry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isNil(impl) {
		delete(r.impls, vendor)
		return r
	}
	r.impls[vendor] = impl
	return r
}

// isNil reports a nil interface or a nil pointer, func, map, slice or
// channel held in one
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Resolve returns the implementation registered for vendor
func (r *Registry[T]) Resolve(vendor types.Vendor) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	impl, ok := r.impls[vendor]
	if !ok {
		var zero T
		return zero, &UnresolvedImplementationError{Capability: r.capability, Vendor: vendor}
	}
	return impl, nil
}

// Capability returns the capability this registry resolves
func (r *Registry[T]) Capability() Capability {
	return r.capability
}

// Vendors lists the registered vendors in sorted order
func (r *Registry[T]) Vendors() []types.Vendor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vendors := make([]types.Vendor, 0, len(r.impls))
	for v := range r.impls {
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i] < vendors[j] })
	return vendors
}
