package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/knotmail/resolved/dns"
	"github.com/knotmail/resolved/metrics"
)

// classified is the outcome of the classification cascade: a channel,
// a nexthop, the class/condition bits it contributed, and the
// configuration parameter name to blame if channel ends up empty.
type classified struct {
	channel string
	nexthop string
	blame   string
	flags   Flags
	warn    string // non-empty if a warning should be logged
}

// classifyRemote implements the destination classification cascade
// for a non-local domain: virtual alias domain, then virtual mailbox
// domain, then relay domain, then the default transport, in that
// order, the first matching rule winning.
func (r *Resolver) classifyRemote(ctx context.Context, domain string) classified {
	nexthop := strings.ToLower(domain)
	var flags Flags
	if ipdom, err := dns.ParseIPDomain(nexthop); err != nil || !ipdom.IsIP() && !dns.ValidHostname(nexthop) {
		flags |= FlagError
	}

	aliasHit, aliasRes := r.Tables.VirtAliasDoms.Match(ctx, nexthop)
	if aliasRes.IsTransient() {
		metrics.LookupErrorsInc("virt_alias_doms")
		return classified{flags: flags | FlagFail}
	}
	if aliasHit {
		c := classified{
			channel: r.Config.ErrorTransport,
			nexthop: "User unknown",
			blame:   "error_transport",
			flags:   flags | ClassAlias,
		}
		// The alias branch has already won; virt_mailbox_doms is looked
		// up here only to warn about a domain listed in both tables. A
		// transient failure of that lookup still sets FlagFail.
		mboxHit, mboxRes := r.Tables.VirtMailboxDoms.Match(ctx, nexthop)
		if mboxRes.IsTransient() {
			metrics.LookupErrorsInc("virt_mailbox_doms")
			c.flags |= FlagFail
		} else if mboxHit {
			c.warn = fmt.Sprintf("domain %q listed in both virt_alias_doms and virt_mailbox_doms", nexthop)
		}
		return finishChannel(c)
	}

	mboxHit, mboxRes := r.Tables.VirtMailboxDoms.Match(ctx, nexthop)
	if mboxRes.IsTransient() {
		metrics.LookupErrorsInc("virt_mailbox_doms")
		return classified{flags: flags | FlagFail}
	}
	if mboxHit {
		return finishChannel(classified{
			channel: r.Config.VirtTransport,
			nexthop: nexthop,
			blame:   "virt_transport",
			flags:   flags | ClassVirtual,
		})
	}

	relayHit, relayRes := r.Tables.RelayDomains.Match(ctx, nexthop)
	if relayRes.IsTransient() {
		metrics.LookupErrorsInc("relay_domains")
		return classified{flags: flags | FlagFail}
	}
	if relayHit {
		c := classified{
			channel: r.Config.RelayTransport,
			nexthop: nexthop,
			blame:   "relay_transport",
			flags:   flags | ClassRelay,
		}
		if r.Config.Relayhost != "" {
			c.nexthop = r.Config.Relayhost
		}
		return finishChannel(c)
	}

	c := classified{
		channel: r.Config.DefTransport,
		nexthop: nexthop,
		blame:   "def_transport",
		flags:   flags | ClassDefault,
	}
	if r.Config.Relayhost != "" {
		c.nexthop = r.Config.Relayhost
	}
	return finishChannel(c)
}

// classifyLocal implements the local branch: local_transport, with
// myhostname as nexthop unless the transport string itself carries a
// nexthop override. It also checks, purely for the configuration-
// conflict warning, whether domain (the final recipient's domain) is
// also listed as a virtual domain.
func (r *Resolver) classifyLocal(ctx context.Context, domain string) classified {
	c := classified{
		channel: r.Config.LocalTransport,
		blame:   "local_transport",
		flags:   ClassLocal,
	}
	c.channel, c.nexthop = splitChannel(c.channel)
	if c.nexthop == "" {
		c.nexthop = r.Config.MyHostname
	}

	if aliasHit, _ := r.Tables.VirtAliasDoms.Match(ctx, domain); aliasHit {
		c.warn = fmt.Sprintf("domain %q of local recipient also listed in virt_alias_doms", domain)
	} else if mboxHit, _ := r.Tables.VirtMailboxDoms.Match(ctx, domain); mboxHit {
		c.warn = fmt.Sprintf("domain %q of local recipient also listed in virt_mailbox_doms", domain)
	}
	return c
}

// finishChannel applies the "channel contains ':'" split common to
// every classification branch.
func finishChannel(c classified) classified {
	channel, nexthopOverride := splitChannel(c.channel)
	c.channel = channel
	if nexthopOverride != "" {
		c.nexthop = nexthopOverride
	}
	return c
}
