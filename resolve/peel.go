package resolve

import (
	"context"

	"github.com/knotmail/resolved/address"
	"github.com/knotmail/resolved/rewrite"
)

// peelResult is everything the peeling loop hands to finalization and
// classification: the terminal remote domain (empty if the address
// ended up purely local), and any routing flags discovered along the
// way.
type peelResult struct {
	domain string // "" if purely local
	flags  Flags
}

// peel runs the loop described in the resolver's peeling step: it
// repeatedly strips local-domain suffixes from tree, remembering the
// most recently stripped one in savedDomain, until the address is
// either empty, purely local, or anchored on a remote domain. tree is
// mutated in place; savedDomain, if non-nil on return, holds the last
// local-domain suffix stripped and must be reattached by finalize.
func (r *Resolver) peel(ctx context.Context, tree *address.Tree, savedDomain **address.Tree) peelResult {
	for {
		tree.TrimSafeTrailingDot()
		tree.StripTrailingBareAt()

		if tree.IsSingleEmptyQuoted() {
			tree.SetSingleAtom("postmaster")
			_ = r.Hook.Rewrite(ctx, rewrite.Canon, tree)
			continue
		}

		idx, ok := tree.RightmostSpecial('@')
		if !ok {
			if r.hasMoreRoutingOperators(tree) {
				_ = r.Hook.Rewrite(ctx, rewrite.Canon, tree)
				continue
			}
			return peelResult{domain: ""}
		}

		domain := tree.SuffixAfter(idx)
		if r.Config.IsLocalDomain != nil && r.Config.IsLocalDomain(domain) {
			*savedDomain = tree.SubKeepBefore(idx)
			continue
		}

		if r.hasMoreRoutingOperators(tree) {
			_ = r.Hook.Rewrite(ctx, rewrite.Canon, tree)
			continue
		}

		var flags Flags
		if tree.HasSpecialBefore(idx, '@', '!', '%') {
			flags |= FlagRouted
		}
		return peelResult{domain: domain, flags: flags}
	}
}

// hasMoreRoutingOperators reports whether the tree still has a '%' or
// '!' that the configured toggles would convert to '@', meaning
// another canonicalization pass could change which '@' is rightmost.
func (r *Resolver) hasMoreRoutingOperators(tree *address.Tree) bool {
	return r.Config.PercentHack && tree.HasSpecial('%') ||
		r.Config.SwapBangpath && tree.HasSpecial('!')
}

// finalize implements recipient finalization: if the address ended up
// purely local, it reattaches the last stripped local-domain suffix,
// or, failing that, appends "@"+myhostname, so nextrcpt always has an
// explicit domain.
func (r *Resolver) finalize(tree *address.Tree, savedDomain *address.Tree) string {
	if savedDomain != nil {
		tree.Append(savedDomain)
	} else {
		hostSuffix, err := address.ScanAddr("@" + r.Config.MyHostname)
		if err == nil {
			tree.Append(hostSuffix)
		}
	}
	return tree.Internalize()
}
