package rconf

import (
	"fmt"
	"strings"

	"github.com/knotmail/resolved/dns"
	"github.com/knotmail/resolved/resolve"
	"github.com/knotmail/resolved/tables"
)

// normalizeDomain IDNA-normalizes s via dns.ParseDomain, falling back to a
// plain lower-casing if s isn't valid IDNA (e.g. a name with a trailing
// dot or an underscore), so a malformed entry degrades to exact-string
// matching instead of making Build fail.
func normalizeDomain(s string) string {
	d, err := dns.ParseDomain(s)
	if err != nil {
		return strings.ToLower(s)
	}
	return d.ASCII
}

// Build constructs the table set and resolver configuration described
// by st. Table parameters left at their zero value produce a nil
// field in the returned Set, which tables treats as "never matches",
// not as a misconfiguration.
func (st *Static) Build() (*tables.Set, resolve.Config, error) {
	set := &tables.Set{}

	relay, err := buildLookup(st.RelayDomains)
	if err != nil {
		return nil, resolve.Config{}, fmt.Errorf("relay_domains: %w", err)
	}
	if relay != nil {
		set.RelayDomains = tables.NewDomainList(relay)
	}

	aliasDoms, err := buildLookup(st.VirtAliasDoms)
	if err != nil {
		return nil, resolve.Config{}, fmt.Errorf("virt_alias_doms: %w", err)
	}
	if aliasDoms != nil {
		set.VirtAliasDoms = tables.NewStringList(aliasDoms)
	}

	mailboxDoms, err := buildLookup(st.VirtMailboxDoms)
	if err != nil {
		return nil, resolve.Config{}, fmt.Errorf("virt_mailbox_doms: %w", err)
	}
	if mailboxDoms != nil {
		set.VirtMailboxDoms = tables.NewStringList(mailboxDoms)
	}

	relocated, err := buildLookup(st.RelocatedMaps)
	if err != nil {
		return nil, resolve.Config{}, fmt.Errorf("relocated_maps: %w", err)
	}
	if relocated != nil {
		set.RelocatedMaps = tables.NewAddrMap(relocated, "+")
	}

	transport, err := buildLookup(st.TransportMaps)
	if err != nil {
		return nil, resolve.Config{}, fmt.Errorf("transport_maps: %w", err)
	}
	if transport != nil {
		set.TransportMaps = tables.NewAddrMap(transport, "+")
	}

	myDomains := map[string]bool{normalizeDomain(st.MyHostname): true}
	for _, d := range st.MyDomains {
		myDomains[normalizeDomain(d)] = true
	}

	cfg := resolve.Config{
		ResolveDequoted: st.ResolveDequoted,
		SwapBangpath:    st.SwapBangpath,
		PercentHack:     st.PercentHack,
		MyHostname:      st.MyHostname,
		Relayhost:       st.Relayhost,
		LocalTransport:  st.LocalTransport,
		VirtTransport:   st.VirtTransport,
		RelayTransport:  st.RelayTransport,
		DefTransport:    st.DefTransport,
		ErrorTransport:  st.ErrorTransport,
		IsLocalDomain: func(d string) bool {
			return myDomains[normalizeDomain(d)]
		},
	}
	return set, cfg, nil
}

// buildLookup constructs the concrete backend named by spec, or
// returns nil if spec is unconfigured.
func buildLookup(spec TableSpec) (tables.Lookup, error) {
	if spec.empty() {
		return nil, nil
	}
	switch spec.Type {
	case "static":
		return tables.Static(spec.Entries), nil
	case "file":
		return tables.NewFile(spec.Path)
	default:
		return nil, fmt.Errorf("unknown table type %q", spec.Type)
	}
}
