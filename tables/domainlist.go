package tables

import (
	"context"
	"strings"
)

// DomainList matches a domain name against a set of patterns with
// parent-style matching: a pattern written as ".example.com" matches
// "example.com" and any subdomain of it, not just subdomains. A pattern
// without a leading dot matches only that exact name. This is the same
// matching rule outgoing routes use to match a recipient domain against a
// route's ToDomain list.
type DomainList struct {
	lookup Lookup
}

// NewDomainList wraps a backend for parent-style domain matching. A nil
// lookup is valid and always misses.
func NewDomainList(lookup Lookup) *DomainList {
	return &DomainList{lookup: lookup}
}

// Match reports whether domain matches any pattern the backend holds keys
// for. Patterns are read one at a time through the backend's Lookup by
// trying domain itself and then each of its parent suffixes with a leading
// dot, which lets a file-backed list store one pattern per line without
// this package needing to enumerate the whole table.
func (l *DomainList) Match(ctx context.Context, domain string) (bool, Result) {
	if l == nil || l.lookup == nil {
		return false, Miss
	}
	domain = strings.ToLower(domain)

	try := func(pattern string) (bool, Result) {
		_, r := l.lookup.Lookup(ctx, pattern)
		return r == Hit, r
	}

	if hit, r := try(domain); r == Transient {
		return false, Transient
	} else if hit {
		return true, Hit
	}
	// Dotted patterns match both the named domain itself (".example.com"
	// matching "example.com") and any proper subdomain, so probe "."+domain
	// and then "."+suffix for every suffix starting right after a dot.
	for i := -1; i < len(domain); i++ {
		if i >= 0 && domain[i] != '.' {
			continue
		}
		pattern := "." + domain[i+1:]
		if hit, r := try(pattern); r == Transient {
			return false, Transient
		} else if hit {
			return true, Hit
		}
	}
	return false, Miss
}
