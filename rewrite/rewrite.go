// Package rewrite defines the canonicalization seam the resolver calls
// into during its peeling loop, and ships a minimal default
// implementation sufficient to run the resolver standalone.
package rewrite

import (
	"context"

	"github.com/knotmail/resolved/address"
)

// Hook is a one-shot transformation of a token tree under a named
// ruleset. Implementations replace tree's contents in place; the
// resolver treats the call as a black box whose only contract is that
// the tree still represents a single address afterward, possibly with
// different routing-operator content.
type Hook interface {
	Rewrite(ctx context.Context, ruleset string, tree *address.Tree) error
}

// Canon is the ruleset name the resolver invokes for canonicalization
// during the peeling loop.
const Canon = "canon"

// DefaultHook returns the minimal canonicalizer the peeling loop
// actually depends on: Canon.
func DefaultHook() Hook {
	return defaultCanon{}
}

type defaultCanon struct{}

func (defaultCanon) Rewrite(ctx context.Context, ruleset string, tree *address.Tree) error {
	if ruleset != Canon {
		return nil
	}
	swapBangpath(tree)
	percentHack(tree)
	return nil
}

// percentHack replaces the rightmost '%' special with '@', the
// classic sendmail/postfix percent-hack normalization
// (user%host@relay becomes user@host@relay for the next peel).
func percentHack(tree *address.Tree) {
	idx, ok := tree.RightmostSpecial('%')
	if !ok {
		return
	}
	tree.ReplaceSpecial(idx, '@')
}

// swapBangpath turns the rightmost "site!user" pair into "user@site":
// it locates the rightmost '!' and exchanges everything before it with
// everything after it, then replaces the '!' with '@'.
func swapBangpath(tree *address.Tree) {
	idx, ok := tree.RightmostSpecial('!')
	if !ok {
		return
	}
	tree.SwapAroundSpecial(idx)
	tree.ReplaceSpecial(idx, '@')
}
