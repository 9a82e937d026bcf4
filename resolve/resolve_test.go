package resolve

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/knotmail/resolved/mlog"
	"github.com/knotmail/resolved/tables"
)

func localDomain(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(d string) bool { return set[d] }
}

func TestResolveLocal(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		MyHostname:      "myhost",
		LocalTransport:  "local",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), "user@myhost", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "local" || res.Nexthop != "myhost" || res.Nextrcpt != "user@myhost" || res.Flags != ClassLocal {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveDefault(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@ext.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "smtp" || res.Nexthop != "ext.example" || res.Flags != ClassDefault {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveDefaultWithRelayhost(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp",
		Relayhost:       "[gw]",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@ext.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "smtp" || res.Nexthop != "[gw]" || res.Flags != ClassDefault {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveVirtualMailbox(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		VirtTransport:   "virtual",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{VirtMailboxDoms: tables.NewStringList(tables.Static{"v.example": ""})}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@v.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "virtual" || res.Nexthop != "v.example" || res.Flags != ClassVirtual {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveVirtualAlias(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		ErrorTransport:  "error",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{VirtAliasDoms: tables.NewStringList(tables.Static{"a.example": ""})}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@a.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "error" || res.Nexthop != "User unknown" || res.Flags != ClassAlias {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveAliasAndMailboxConflict(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		ErrorTransport:  "error",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{
		VirtAliasDoms:   tables.NewStringList(tables.Static{"both.example": ""}),
		VirtMailboxDoms: tables.NewStringList(tables.Static{"both.example": ""}),
	}
	r := New(tbls, cfg, nil)

	prevConfig := map[string]mlog.Level{"": mlog.LevelError}
	mlog.SetConfig(map[string]mlog.Level{"resolve": mlog.LevelInfo})
	defer mlog.SetConfig(prevConfig)

	realStderr := os.Stderr
	rp, wp, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = wp
	res, resolveErr := r.Resolve(context.Background(), "u@both.example", "")
	wp.Close()
	os.Stderr = realStderr
	var captured bytes.Buffer
	io.Copy(&captured, rp)

	if resolveErr != nil {
		t.Fatal(resolveErr)
	}
	if res.Channel != "error" || res.Nexthop != "User unknown" || !res.Flags.Has(ClassAlias) {
		t.Fatalf("expected alias to win over mailbox, got %+v", res)
	}
	if !strings.Contains(captured.String(), "virt_alias_doms") || !strings.Contains(captured.String(), "virt_mailbox_doms") {
		t.Fatalf("expected configuration-conflict warning naming both tables, got %q", captured.String())
	}
}

func TestResolveRoutedAddress(t *testing.T) {
	cfg := Config{
		ResolveDequoted: false, // requoted mode, as scenario 6 requires
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), "attacker@hop@remote", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "smtp" || res.Nexthop != "remote" || res.Nextrcpt != "attacker@hop@remote" {
		t.Fatalf("got %+v", res)
	}
	if !res.Flags.Has(FlagRouted) || !res.Flags.Has(ClassDefault) {
		t.Fatalf("expected FlagRouted|ClassDefault, got %v", res.Flags)
	}
}

func TestResolveBangpathWithoutAt(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		SwapBangpath:    true,
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), "site!user", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "smtp" || res.Nexthop != "site" || res.Nextrcpt != "user@site" {
		t.Fatalf("got %+v", res)
	}
	if res.Flags.Has(ClassLocal) {
		t.Fatalf("bangpath address with no literal @ must not be classified local, got %v", res.Flags)
	}
}

func TestResolveRelocated(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		MyHostname:      "myhost",
		LocalTransport:  "local",
		ErrorTransport:  "error",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{
		RelocatedMaps: tables.NewAddrMap(tables.Static{"moved@myhost": "new@elsewhere"}),
	}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "moved@myhost", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "error" || res.Nexthop != "user has moved to new@elsewhere" || res.Nextrcpt != "moved@myhost" {
		t.Fatalf("got %+v", res)
	}
	if !res.Flags.Has(ClassLocal) {
		t.Fatalf("expected CLASS_LOCAL to survive relocation, got %v", res.Flags)
	}
}

func TestResolveTransportMapProtectsErrorTransport(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		MyHostname:      "myhost",
		LocalTransport:  "local",
		ErrorTransport:  "error",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{
		RelocatedMaps: tables.NewAddrMap(tables.Static{"moved@myhost": "new@elsewhere"}),
		TransportMaps: tables.NewAddrMap(tables.Static{"moved@myhost": "smtp:[should-not-apply]"}),
	}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "moved@myhost", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "error" {
		t.Fatalf("transport map must not override the error transport, got channel %q", res.Channel)
	}
}

func TestResolveTransportSplit(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp:[mx.isp.example]",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@ext.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Channel != "smtp" || res.Nexthop != "[mx.isp.example]" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveEmptyLocalpartBecomesPostmaster(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		MyHostname:      "myhost",
		LocalTransport:  "local",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	res, err := r.Resolve(context.Background(), `""@myhost`, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Nextrcpt != "postmaster@myhost" {
		t.Fatalf("got nextrcpt %q", res.Nextrcpt)
	}
}

func TestResolveTransientLookupSetsFlagFail(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	failing := &failLookup{}
	tbls := &tables.Set{RelayDomains: tables.NewDomainList(failing)}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@ext.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.Has(FlagFail) {
		t.Fatalf("expected FLAG_FAIL on transient backend error, got %v", res.Flags)
	}
}

func TestResolveVirtAliasDomsTransientSetsFlagFail(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{VirtAliasDoms: tables.NewStringList(&failLookup{})}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@ext.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.Has(FlagFail) {
		t.Fatalf("expected FLAG_FAIL on virt_alias_doms transient error, got %v", res.Flags)
	}
}

func TestResolveVirtMailboxDomsTransientSetsFlagFail(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{VirtMailboxDoms: tables.NewStringList(&failLookup{})}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "u@ext.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.Has(FlagFail) {
		t.Fatalf("expected FLAG_FAIL on virt_mailbox_doms transient error, got %v", res.Flags)
	}
}

func TestResolveRelocatedMapsTransientSetsFlagFail(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		MyHostname:      "myhost",
		LocalTransport:  "local",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{RelocatedMaps: tables.NewAddrMap(&failLookup{})}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "user@myhost", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.Has(FlagFail) {
		t.Fatalf("expected FLAG_FAIL on relocated_maps transient error, got %v", res.Flags)
	}
}

func TestResolveTransportMapsTransientSetsFlagFail(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		MyHostname:      "myhost",
		LocalTransport:  "local",
		IsLocalDomain:   localDomain("myhost"),
	}
	tbls := &tables.Set{TransportMaps: tables.NewAddrMap(&failLookup{})}
	r := New(tbls, cfg, nil)
	res, err := r.Resolve(context.Background(), "user@myhost", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.Has(FlagFail) {
		t.Fatalf("expected FLAG_FAIL on transport_maps transient error, got %v", res.Flags)
	}
}

func TestResolveMalformedNexthopSetsFlagError(t *testing.T) {
	cfg := Config{
		ResolveDequoted: true,
		DefTransport:    "smtp",
		IsLocalDomain:   localDomain("myhost"),
	}
	r := New(&tables.Set{}, cfg, nil)
	// "example.com.." keeps its trailing dot: TrimSafeTrailingDot only
	// strips a single trailing '.' when the token before it is an atom
	// or '@', and here it's preceded by another '.', so the malformed
	// two-dot domain survives peeling and is rejected by dns.ParseDomain
	// (which refuses a trailing dot) in classifyRemote's nexthop
	// validity check.
	res, err := r.Resolve(context.Background(), "u@example.com..", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Flags.Has(FlagError) {
		t.Fatalf("expected FlagError on malformed nexthop, got %v", res.Flags)
	}
	if res.Flags.Has(FlagFail) {
		t.Fatalf("FlagError must not imply FlagFail, got %v", res.Flags)
	}
}

type failLookup struct{}

func (*failLookup) Lookup(ctx context.Context, key string) (string, tables.Result) {
	return "", tables.Transient
}
