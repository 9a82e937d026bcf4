// Package dns parses and canonicalizes domain names (including
// internationalized ones) and validates hostname syntax. It holds no
// resolver: looking up MX records or addresses for a domain is the
// delivery agent's job, not this resolver's.
package dns

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

var errTrailingDot = errors.New("dns name has trailing dot")

// Domain is a domain name, with at least an ASCII representation, and for
// IDNA non-ASCII domains also a unicode representation.
// The ASCII string is always in lower case and is what must be used for
// matching against configured tables.
type Domain struct {
	// ASCII holds A-labels (xn--...) or plain NR-LDH labels. Always lower case.
	ASCII string

	// Unicode holds U-labels. Empty if this is an ASCII-only domain.
	Unicode string
}

// Name returns the unicode name if set, otherwise the ASCII name.
func (d Domain) Name() string {
	if d.Unicode != "" {
		return d.Unicode
	}
	return d.ASCII
}

// XName is like Name, but only returns a unicode name when utf8 is true.
func (d Domain) XName(utf8 bool) string {
	if utf8 && d.Unicode != "" {
		return d.Unicode
	}
	return d.ASCII
}

// LogString returns a domain for logging. For IDNA names it contains both
// the unicode and ASCII form.
func (d Domain) LogString() string {
	if d.Unicode == "" {
		return d.ASCII
	}
	return d.Unicode + "/" + d.ASCII
}

func (d Domain) String() string { return d.LogString() }

// IsZero returns whether this is an empty Domain.
func (d Domain) IsZero() bool {
	return d == Domain{}
}

// ParseDomain parses a domain name that can consist of ASCII-only labels or
// U-labels (unicode). Names are IDN-canonicalized and lower-cased.
//
// Characters in unicode labels can be replaced by confusable-resistant
// equivalents during canonicalization, so only ever compare parsed domains,
// never raw strings.
func ParseDomain(s string) (Domain, error) {
	if strings.HasSuffix(s, ".") {
		return Domain{}, errTrailingDot
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return Domain{}, fmt.Errorf("to ascii: %w", err)
	}
	unicode, err := idna.Lookup.ToUnicode(s)
	if err != nil {
		return Domain{}, fmt.Errorf("to unicode: %w", err)
	}
	if ascii == unicode {
		return Domain{ASCII: ascii}, nil
	}
	return Domain{ASCII: ascii, Unicode: unicode}, nil
}
