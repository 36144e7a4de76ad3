package interceptors

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Reserved orders. The band below ReservedOrders belongs to the built-in
// interceptors; user interceptors added to a client builder must use
// ReservedOrders or above.
const (
	OrderLogger    = 0
	OrderRetry     = 128
	OrderRealCall  = 255
	ReservedOrders = 256
)

var (
	// ErrNegativeOrder is returned when an interceptor reports an order below zero
	ErrNegativeOrder = errors.New("interceptor order must not be negative")
	// ErrReservedOrder is returned when a user interceptor claims a built-in order
	ErrReservedOrder = fmt.Errorf("interceptor orders below %d are reserved", ReservedOrders)
)

// Registry maps orders to interceptors. At most one interceptor occupies an
// order; a later registration at the same order replaces the earlier one.
type Registry struct {
	mu      sync.RWMutex
	entries map[int]Interceptor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]Interceptor)}
}

// Register validates and stores interceptors in argument order. It stops at
// the first interceptor with a negative order; earlier ones stay registered.
func (r *Registry) Register(interceptors ...Interceptor) error {
	for _, ic := range interceptors {
		if err := CheckOrder(ic); err != nil {
			return err
		}
		r.Put(ic)
	}
	return nil
}

// Put stores an interceptor without validation, replacing any interceptor
// at the same order
func (r *Registry) Put(ic Interceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[ic.Order()] = ic
}

// Merge copies every entry of other into r; entries of other win
func (r *Registry) Merge(other *Registry) {
	for _, ic := range other.Snapshot() {
		r.Put(ic)
	}
}

// Snapshot returns the interceptors sorted by ascending order
func (r *Registry) Snapshot() []Interceptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Interceptor, 0, len(r.entries))
	for _, ic := range r.entries {
		out = append(out, ic)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Order() < out[j].Order()
	})
	return out
}

// Len returns the number of registered interceptors
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes every entry
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[int]Interceptor)
}

// CheckOrder rejects nil interceptors and negative orders
func CheckOrder(ic Interceptor) error {
	if ic == nil {
		return fmt.Errorf("%w: nil interceptor", ErrNegativeOrder)
	}
	if ic.Order() < 0 {
		return fmt.Errorf("%w: %s has order %d", ErrNegativeOrder, ic.Name(), ic.Order())
	}
	return nil
}

// CheckUserOrder additionally rejects orders inside the reserved band
func CheckUserOrder(ic Interceptor) error {
	if err := CheckOrder(ic); err != nil {
		return err
	}
	if ic.Order() < ReservedOrders {
		return fmt.Errorf("%w: %s has order %d", ErrReservedOrder, ic.Name(), ic.Order())
	}
	return nil
}
