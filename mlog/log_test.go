package mlog

import "testing"

func TestMatch(t *testing.T) {
	SetConfig(map[string]Level{"": LevelError, "resolve": LevelDebug})
	defer SetConfig(map[string]Level{"": LevelError})

	l := New("resolve")
	if ok, _ := l.match(LevelDebug); !ok {
		t.Fatalf("expected debug enabled for pkg resolve")
	}
	other := New("proto")
	if ok, _ := other.match(LevelDebug); ok {
		t.Fatalf("expected debug disabled for pkg proto")
	}
	if ok, _ := other.match(LevelError); !ok {
		t.Fatalf("expected error enabled for pkg proto via default")
	}
}
