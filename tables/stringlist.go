package tables

import (
	"context"
	"strings"
)

// StringList matches a string (here always a domain) against a backend by
// exact, case-insensitive equality. Used for virt_alias_doms and
// virt_mailbox_doms, which — unlike relay_domains — never do parent-style
// subdomain matching.
type StringList struct {
	lookup Lookup
}

// NewStringList wraps a backend for exact-match lookups. A nil lookup is
// valid and always misses.
func NewStringList(lookup Lookup) *StringList {
	return &StringList{lookup: lookup}
}

func (l *StringList) Match(ctx context.Context, s string) (bool, Result) {
	if l == nil || l.lookup == nil {
		return false, Miss
	}
	_, r := l.lookup.Lookup(ctx, strings.ToLower(s))
	return r == Hit, r
}
