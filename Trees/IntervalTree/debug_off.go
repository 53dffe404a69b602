//go:build !rledebug

package IntervalTree

const debug = false
