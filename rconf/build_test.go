package rconf

import "testing"

func TestBuildUnconfiguredTablesAreNil(t *testing.T) {
	st := &Static{
		MyHostname:     "myhost",
		LocalTransport: "local",
		DefTransport:   "smtp",
	}
	set, cfg, err := st.Build()
	if err != nil {
		t.Fatal(err)
	}
	if set.RelayDomains != nil || set.VirtAliasDoms != nil || set.VirtMailboxDoms != nil {
		t.Fatal("unconfigured tables should be nil")
	}
	if !cfg.IsLocalDomain("myhost") || cfg.IsLocalDomain("other.example") {
		t.Fatal("IsLocalDomain default did not match MyHostname correctly")
	}
}

func TestBuildStaticTable(t *testing.T) {
	st := &Static{
		MyHostname:    "myhost",
		MyDomains:     []string{"example.com"},
		RelayDomains:  TableSpec{Type: "static", Entries: map[string]string{".example.net": ""}},
		VirtAliasDoms: TableSpec{Type: "static", Entries: map[string]string{"a.example": ""}},
	}
	set, cfg, err := st.Build()
	if err != nil {
		t.Fatal(err)
	}
	if set.RelayDomains == nil || set.VirtAliasDoms == nil {
		t.Fatal("expected configured tables to be non-nil")
	}
	if !cfg.IsLocalDomain("example.com") {
		t.Fatal("expected MyDomains entry to be recognized as local")
	}
}

func TestBuildUnknownTableType(t *testing.T) {
	st := &Static{
		RelayDomains: TableSpec{Type: "ldap"},
	}
	if _, _, err := st.Build(); err == nil {
		t.Fatal("expected error for unknown table type")
	}
}
