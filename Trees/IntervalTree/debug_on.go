//go:build rledebug

package IntervalTree

// With rledebug, out of range indices panic and every mutation is followed by Check.
const debug = true
