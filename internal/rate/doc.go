// Package rate implements a Redis fixed-window counter used to throttle
// refresh-token rotation.
//
// Each window is a single INCR key; the first hit in a window sets its
// expiry, so counters never outlive the cooldown.
package rate
