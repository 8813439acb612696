// Package directory tracks an opaque "something changed" signal for the
// user-profile directory. Consumers only ever compare version numbers;
// the signal carries no profile data.
package directory

import "sync/atomic"

// Version is a monotonically increasing change counter. The zero value
// is ready to use.
type Version struct {
	n atomic.Int64
}

// Bump records one observed change and returns the new version.
func (v *Version) Bump() int64 {
	return v.n.Add(1)
}

// Current returns the latest observed version.
func (v *Version) Current() int64 {
	return v.n.Load()
}
