package permission

import (
	"fmt"
	"slices"
	"sync"
)

// RootPermission, when listed in a role, sets the reserved root bit.
const RootPermission = "*"

// RoleManager composes named roles out of registered permissions.
//
// Roles are registered at startup, then the manager is frozen and only read.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole records roleName as the union of permissionNames.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return ErrFrozen
	}
	if roleName == "" {
		return fmt.Errorf("role %w", ErrEmptyName)
	}
	if _, exists := rm.roles[roleName]; exists {
		return fmt.Errorf("role %q %w", roleName, ErrDuplicate)
	}

	var mask Mask64
	for _, perm := range permissionNames {
		if perm == RootPermission {
			root, ok := rm.registry.RootBit()
			if !ok {
				return fmt.Errorf("role %q: root bit not reserved", roleName)
			}
			mask.Set(root)
			continue
		}
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, perm)
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// GetMask returns the role's permission mask.
func (rm *RoleManager) GetMask(roleName string) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Permissions expands the role into permission names.
func (rm *RoleManager) Permissions(roleName string) ([]string, bool) {
	mask, ok := rm.GetMask(roleName)
	if !ok {
		return nil, false
	}
	return rm.registry.Names(mask), true
}

// Allows reports whether roleName grants perm. Unknown roles and
// permissions are denied.
func (rm *RoleManager) Allows(roleName, perm string) bool {
	mask, ok := rm.GetMask(roleName)
	if !ok {
		return false
	}
	bit, ok := rm.registry.Bit(perm)
	if !ok {
		return false
	}
	_, rootReserved := rm.registry.RootBit()
	return mask.Has(bit, rootReserved)
}

// Roles lists registered role names, sorted.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]string, 0, len(rm.roles))
	for name := range rm.roles {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
