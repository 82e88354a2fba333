package license

// Limits caps tenant usage. A nil MaxProducts means unbounded.
type Limits struct {
	MaxUsers    int  `json:"maxUsers"`
	MaxProducts *int `json:"maxProducts,omitempty"`
}

// Int returns a pointer to n, for optional limits.
func Int(n int) *int {
	return &n
}

// DefaultLimits returns the limits bundled with each tier.
func DefaultLimits(tier Tier) Limits {
	switch tier {
	case TierProfessional:
		return Limits{MaxUsers: 25, MaxProducts: Int(5000)}
	case TierEnterprise:
		return Limits{MaxUsers: 100}
	default:
		return Limits{MaxUsers: 5, MaxProducts: Int(500)}
	}
}

// AllowsUsers reports whether one more user fits: current < MaxUsers.
func (l Limits) AllowsUsers(current int) bool {
	return current < l.MaxUsers
}

// AllowsProducts reports whether one more product fits. Unbounded when
// MaxProducts is nil.
func (l Limits) AllowsProducts(current int) bool {
	return l.MaxProducts == nil || current < *l.MaxProducts
}
