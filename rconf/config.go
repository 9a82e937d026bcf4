// Package rconf loads the resolver's configuration from an sconf text
// file and builds the table set and statics the resolve package needs
// from it.
package rconf

import "github.com/mjl-/sconf"

// Static is the parsed form of the resolver's configuration file.
// NOTE: This config file is in 'sconf' format: indent with tabs,
// comments on their own line, no quoting of strings.
type Static struct {
	Listen        string `sconf-doc:"Address to listen on for the resolver's own attribute protocol, e.g. :8703, or a unix socket path prefixed with unix:."`
	MetricsListen string `sconf:"optional" sconf-doc:"Address to serve Prometheus metrics on. If empty, metrics are not served."`

	LogLevel         string            `sconf-doc:"Default log level, one of: error, info, debug, trace."`
	PackageLogLevels map[string]string `sconf:"optional" sconf-doc:"Overrides of log level per package, e.g. resolve, tables, proto."`

	MyHostname string   `sconf-doc:"This host's own name, used as nexthop for local delivery and appended to addresses resolved as purely local with no other domain to restore."`
	MyDomains  []string `sconf:"optional" sconf-doc:"Additional domain names that are equivalent to this host for is-local-domain purposes, beyond MyHostname itself."`

	ResolveDequoted bool `sconf:"optional" sconf-doc:"If true, addresses are parsed directly in internalized form, so routing operators hidden inside a quoted local part stay invisible to the resolver. If false (the default posture for an MTA accepting mail from untrusted peers), the address is requoted before parsing so such operators become visible and contribute FLAG_ROUTED."`
	SwapBangpath    bool `sconf:"optional" sconf-doc:"Enable conversion of site!user into user@site during canonicalization."`
	PercentHack     bool `sconf:"optional" sconf-doc:"Enable conversion of user%host into user@host during canonicalization."`

	Relayhost string `sconf:"optional" sconf-doc:"If set, overrides the nexthop for relay and default classified destinations. Never applied to virtual alias or virtual mailbox destinations."`

	LocalTransport string `sconf-doc:"Transport (optionally name:nexthop) used for addresses resolved as local."`
	VirtTransport  string `sconf:"optional" sconf-doc:"Transport used for addresses in a virtual mailbox domain."`
	RelayTransport string `sconf:"optional" sconf-doc:"Transport used for addresses in a relay domain."`
	DefTransport   string `sconf-doc:"Transport used when no other classification matched."`
	ErrorTransport string `sconf:"optional" sconf-doc:"Transport used for bounces: unknown users in a virtual alias domain, and relocated recipients. Never overridden by a transport map entry."`

	RelayDomains    TableSpec `sconf:"optional" sconf-doc:"Table of domains this host relays mail for, with parent-domain matching on patterns written with a leading dot."`
	VirtAliasDoms   TableSpec `sconf:"optional" sconf-doc:"Table of domains that exist only to redirect via an alias table; unmatched recipients bounce."`
	VirtMailboxDoms TableSpec `sconf:"optional" sconf-doc:"Table of domains delivered locally but not tied to OS accounts."`
	RelocatedMaps   TableSpec `sconf:"optional" sconf-doc:"Address-keyed table reporting a user's new address, for bounce-notice purposes."`
	TransportMaps   TableSpec `sconf:"optional" sconf-doc:"Address-keyed table overriding transport/nexthop per recipient."`
}

// TableSpec names a table backend and its contents: Type "static" with
// inline Entries, or Type "file" with a Path such as
// "/etc/resolved/relay-domains". A TableSpec with an empty Type means the
// table is not configured.
type TableSpec struct {
	Type string `sconf:"optional" sconf-doc:"One of 'static' (inline Entries) or 'file' (flat file at Path)."`
	Path string `sconf:"optional" sconf-doc:"File path, when Type is 'file'."`
	// Entries are used when Type is "static": a direct key/value table
	// specified inline in the configuration rather than loaded from disk.
	Entries map[string]string `sconf:"optional" sconf-doc:"Inline key/value pairs, when Type is 'static'."`
}

func (s TableSpec) empty() bool {
	return s.Type == ""
}

// Load parses the sconf file at path into a Static.
func Load(path string) (*Static, error) {
	var st Static
	if err := sconf.ParseFile(path, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
