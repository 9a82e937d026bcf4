package rewrite

import (
	"context"
	"testing"

	"github.com/knotmail/resolved/address"
)

func TestCanonPercentHack(t *testing.T) {
	tree, err := address.ScanAddr("user%host@relay")
	if err != nil {
		t.Fatal(err)
	}
	if err := DefaultHook().Rewrite(context.Background(), Canon, tree); err != nil {
		t.Fatal(err)
	}
	if got, want := tree.Internalize(), "user@host@relay"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonBangpathSwap(t *testing.T) {
	tree, err := address.ScanAddr("site!user")
	if err != nil {
		t.Fatal(err)
	}
	if err := DefaultHook().Rewrite(context.Background(), Canon, tree); err != nil {
		t.Fatal(err)
	}
	if got, want := tree.Internalize(), "user@site"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonIgnoresOtherRulesets(t *testing.T) {
	tree, err := address.ScanAddr("user%host@relay")
	if err != nil {
		t.Fatal(err)
	}
	if err := DefaultHook().Rewrite(context.Background(), "virtual", tree); err != nil {
		t.Fatal(err)
	}
	if got, want := tree.Internalize(), "user%host@relay"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
