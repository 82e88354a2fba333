package permission

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFrozen            = errors.New("registry frozen")
	ErrEmptyName         = errors.New("permission name cannot be empty")
	ErrDuplicate         = errors.New("already registered")
	ErrLimitExceeded     = errors.New("permission limit exceeded")
	ErrUnknownPermission = errors.New("permission not registered")
)

// Registry maps permission names to bit positions within a [Mask64].
type Registry struct {
	rootReserved bool

	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

// NewRegistry creates an empty registry. With rootReserved, the highest bit
// is kept back as a super-admin permission and only 63 names fit.
func NewRegistry(rootReserved bool) *Registry {
	return &Registry{
		rootReserved: rootReserved,
		nameToBit:    make(map[string]int),
		bitToName:    make(map[int]string),
	}
}

// Register assigns the next free bit to name. Must be called before
// [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrFrozen
	}
	if name == "" {
		return -1, ErrEmptyName
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, fmt.Errorf("permission %q %w", name, ErrDuplicate)
	}

	next := len(r.nameToBit)
	limit := MaxBits
	if r.rootReserved {
		limit--
	}
	if next >= limit {
		return -1, ErrLimitExceeded
	}

	r.nameToBit[name] = next
	r.bitToName[next] = name
	return next, nil
}

// Bit returns the bit index for name.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission registered at bit.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

// RootBit returns the reserved root bit, or false if reservation is off.
func (r *Registry) RootBit() (int, bool) {
	if !r.rootReserved {
		return -1, false
	}
	return MaxBits - 1, true
}

// Names expands mask to permission names in bit order. A mask carrying the
// root bit expands to every registered name.
func (r *Registry) Names(mask Mask64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if root, ok := r.RootBit(); ok && mask.Has(root, false) {
		out := make([]string, len(r.nameToBit))
		for bit, name := range r.bitToName {
			out[bit] = name
		}
		return out
	}

	out := make([]string, 0, len(r.nameToBit))
	for _, bit := range mask.Bits() {
		if name, ok := r.bitToName[bit]; ok {
			out = append(out, name)
		}
	}
	return out
}
