package dns

import (
	"strings"

	mdns "github.com/miekg/dns"
)

// ValidHostname reports whether s has the syntax of an internet hostname: a
// sequence of dot-separated labels of letters, digits and hyphens, not
// exceeding the length and label limits from the DNS wire format. It does
// not check that the name resolves to anything; it only validates syntax,
// the same narrow job Postfix's valid_hostname() does before accepting a
// resolved nexthop.
func ValidHostname(s string) bool {
	if s == "" || len(s) > 255 {
		return false
	}
	name := strings.TrimSuffix(s, ".")
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '.') {
			return false
		}
	}
	_, ok := mdns.IsDomainName(name)
	return ok
}
