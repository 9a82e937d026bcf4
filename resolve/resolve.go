package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knotmail/resolved/address"
	"github.com/knotmail/resolved/metrics"
	"github.com/knotmail/resolved/mlog"
	"github.com/knotmail/resolved/tables"
)

var log = mlog.New("resolve")

// Resolve parses addr, runs the peeling loop and classification
// cascade, and returns the resulting (channel, nexthop, nextrcpt,
// flags). cid, if non-empty, is attached to log lines for this call so
// they can be correlated with the connection that issued it.
func (r *Resolver) Resolve(ctx context.Context, addr string, cid string) (Result, error) {
	start := time.Now()
	defer metrics.RequestDurationSince(start)

	l := log
	if cid != "" {
		l = l.WithCid(cid)
	}

	var tree *address.Tree
	var err error
	if r.Config.ResolveDequoted {
		tree, err = address.ScanAddr(addr)
	} else {
		tree, err = address.ScanExternal(addr)
	}
	if err != nil {
		return Result{}, fmt.Errorf("parsing address %q: %w", addr, err)
	}

	var savedDomain *address.Tree
	peeled := r.peel(ctx, tree, &savedDomain)

	var nextrcpt string
	if peeled.domain == "" {
		nextrcpt = r.finalize(tree, savedDomain)
	} else {
		nextrcpt = tree.Internalize()
	}

	var c classified
	if peeled.domain != "" {
		c = r.classifyRemote(ctx, peeled.domain)
	} else {
		c = r.classifyLocal(ctx, recipientDomain(nextrcpt))
	}
	flags := peeled.flags | c.flags
	channel, nexthop, blame := c.channel, c.nexthop, c.blame
	if c.warn != "" {
		l.Info("configuration conflict", mlog.Field("warning", c.warn))
	}

	if !flags.Has(FlagFail) && channel == "" {
		l.Error("empty transport after classification", mlog.Field("param", blame))
		flags |= FlagFail
	}
	if !flags.Has(FlagFail) && nexthop == "" {
		panic(fmt.Sprintf("resolve: empty nexthop on success path for address %q", addr))
	}

	if !flags.Has(FlagFail) && r.Tables.RelocatedMaps != nil {
		newloc, res := r.Tables.RelocatedMaps.Find(ctx, nextrcpt)
		if res.IsTransient() {
			metrics.LookupErrorsInc("relocated_maps")
			flags |= FlagFail
		} else if res == tables.Hit {
			channel, _ = splitChannel(r.Config.ErrorTransport)
			nexthop = "user has moved to " + newloc
			blame = "error_transport"
		}
	}

	errChannel, _ := splitChannel(r.Config.ErrorTransport)
	if !flags.Has(FlagFail) && r.Tables.TransportMaps != nil && channel != errChannel {
		value, res := r.Tables.TransportMaps.Find(ctx, nextrcpt)
		if res.IsTransient() {
			metrics.LookupErrorsInc("transport_maps")
			flags |= FlagFail
		} else if res == tables.Hit {
			newChannel, newNexthop := splitChannel(value)
			if newChannel != "" {
				channel = newChannel
				blame = "transport_maps"
			}
			if newNexthop != "" {
				nexthop = newNexthop
			}
		}
	}

	metrics.RequestsInc(classLabel(flags))

	return Result{
		Channel:  channel,
		Nexthop:  nexthop,
		Nextrcpt: nextrcpt,
		Flags:    flags,
	}, nil
}

// classLabel reduces flags to the single outcome class metrics group
// results by.
func classLabel(flags Flags) string {
	switch {
	case flags.Has(FlagFail):
		return "fail"
	case flags.Has(ClassLocal):
		return "local"
	case flags.Has(ClassAlias):
		return "alias"
	case flags.Has(ClassVirtual):
		return "virtual"
	case flags.Has(ClassRelay):
		return "relay"
	default:
		return "default"
	}
}

func recipientDomain(nextrcpt string) string {
	i := strings.LastIndexByte(nextrcpt, '@')
	if i < 0 {
		return ""
	}
	return nextrcpt[i+1:]
}
