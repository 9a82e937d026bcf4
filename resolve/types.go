// Package resolve implements the resolver engine: the peeling loop,
// route detection, destination classification, and the override chain
// that turns one envelope recipient address into a transport, nexthop
// and rewritten recipient.
package resolve

import (
	"github.com/knotmail/resolved/rewrite"
	"github.com/knotmail/resolved/tables"
)

// Flags is the bitwise-OR classification and condition word returned
// alongside every result. Exactly one Class bit is set on success;
// the Flag bits are independent of the class and of each other.
type Flags uint32

const (
	ClassLocal   Flags = 1
	ClassAlias   Flags = 2
	ClassVirtual Flags = 4
	ClassRelay   Flags = 8
	ClassDefault Flags = 16

	FlagRouted Flags = 256
	FlagError  Flags = 512
	FlagFail   Flags = 1024
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Config is the immutable configuration snapshot the engine consults.
// Every field is read-only after construction; rconf.Static.Build
// produces one of these alongside the table set.
type Config struct {
	ResolveDequoted bool
	SwapBangpath    bool
	PercentHack     bool

	MyHostname string
	Relayhost  string

	LocalTransport string
	VirtTransport  string
	RelayTransport string
	DefTransport   string
	ErrorTransport string

	// IsLocalDomain reports whether d names this host or an
	// equivalent destination. A nil IsLocalDomain is treated as
	// "never local", not a configuration error.
	IsLocalDomain func(d string) bool
}

// Result is the outcome of resolving one address.
type Result struct {
	Channel  string
	Nexthop  string
	Nextrcpt string
	Flags    Flags
}

// Resolver drives the peeling loop and classification cascade for one
// address at a time. A Resolver holds no mutable state of its own
// beyond its configuration and table handles, so one instance can
// safely serve many sequential Resolve calls, and nothing stops a
// caller from using one Resolver per connection instead of sharing a
// single instance, unlike the process-global buffers this algorithm
// was originally built around.
type Resolver struct {
	Tables *tables.Set
	Config Config
	Hook   rewrite.Hook
}

// New returns a Resolver. hook may be nil, in which case
// rewrite.DefaultHook() is used.
func New(tbls *tables.Set, cfg Config, hook rewrite.Hook) *Resolver {
	if hook == nil {
		hook = rewrite.DefaultHook()
	}
	if tbls == nil {
		tbls = &tables.Set{}
	}
	return &Resolver{Tables: tbls, Config: cfg, Hook: hook}
}

// splitChannel implements the "channel contains a ':'" rule used after
// every classification branch: smtp:[mx.isp.example] becomes channel
// "smtp" with nexthop override "[mx.isp.example]".
func splitChannel(raw string) (channel, nexthopOverride string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
