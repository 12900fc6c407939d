// Package cache holds the Redis key layout and a small JSON cache helper
// shared by the catalog, analytics and session stores.
package cache

import (
	"strings"

	"github.com/noah-isme/pos-terminal/internal/common"
)

const prefix = "pos:"

// KeySearch returns the key for cached product search results. Terms are
// case-folded so "Soap" and "soap " share an entry.
func KeySearch(term string) string {
	return prefix + "search:" + common.Digest(strings.ToLower(strings.TrimSpace(term)))
}

// KeyReport returns the key for a cached product report page.
func KeyReport(parts ...string) string {
	return prefix + "report:" + strings.Join(parts, ":")
}

// KeyOverview returns the key for the cached dashboard overview.
func KeyOverview() string {
	return prefix + "analytics:overview"
}

// KeySession returns the key holding a session's upstream token.
func KeySession(id string) string {
	return prefix + "session:" + id
}

// KeyLock returns the key of a distributed lock guarding name.
func KeyLock(name string) string {
	return prefix + "lock:" + name
}
