package license

import "time"

// DefaultSnapshotTTL bounds how long the validator reuses its last result.
const DefaultSnapshotTTL = 5 * time.Minute

type settings struct {
	now         func() time.Time
	issuer      string
	snapshotTTL time.Duration
	revoker     Revoker
}

// Option configures a [Generator] or [Validator].
type Option func(*settings)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer stamps generated tokens with iss and makes the validator require it.
func WithIssuer(issuer string) Option {
	return func(s *settings) {
		s.issuer = issuer
	}
}

// WithSnapshotTTL sets how long [Validator.GetCachedOrValidate] reuses a result.
func WithSnapshotTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.snapshotTTL = d
		}
	}
}

// WithRevoker installs a revocation hook consulted on every validation.
func WithRevoker(r Revoker) Option {
	return func(s *settings) {
		s.revoker = r
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		now:         time.Now,
		snapshotTTL: DefaultSnapshotTTL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
