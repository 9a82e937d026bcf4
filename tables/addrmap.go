package tables

import (
	"context"
	"strings"
)

// AddrMap matches a full recipient address (local@domain, already
// lower-cased the way the resolver emits it) against a backend, with an
// address-extension stripping policy: if the exact address misses, and a
// separator is configured, the localpart is truncated at the first
// occurrence of that separator and the lookup retried, and finally the
// domain's catchall form ("@domain") is tried. This is the same
// progressively-less-specific search Postfix's mail_addr_find performs,
// and the same separator-stripping idea as the catchall separator used to
// canonicalize local delivery addresses.
type AddrMap struct {
	lookup     Lookup
	separators []string // e.g. {"+"}; empty disables extension stripping.
}

// NewAddrMap wraps a backend for address-pattern lookups. A nil lookup is
// valid and always misses.
func NewAddrMap(lookup Lookup, separators ...string) *AddrMap {
	return &AddrMap{lookup: lookup, separators: separators}
}

// Find looks up address, trying the full address, then the address with
// any configured extension separator stripped, then the bare domain's
// catchall form. It returns the first hit's value.
func (m *AddrMap) Find(ctx context.Context, address string) (value string, r Result) {
	if m == nil || m.lookup == nil {
		return "", Miss
	}
	address = strings.ToLower(address)

	candidates := []string{address}

	local, domain, ok := splitAddress(address)
	if ok {
		for _, sep := range m.separators {
			if i := strings.Index(local, sep); i >= 0 {
				candidates = append(candidates, local[:i]+"@"+domain)
				break
			}
		}
		candidates = append(candidates, "@"+domain)
	}

	for _, key := range candidates {
		v, res := m.lookup.Lookup(ctx, key)
		if res == Transient {
			return "", Transient
		}
		if res == Hit {
			return v, Hit
		}
	}
	return "", Miss
}

func splitAddress(address string) (local, domain string, ok bool) {
	i := strings.LastIndexByte(address, '@')
	if i < 0 {
		return "", "", false
	}
	return address[:i], address[i+1:], true
}
