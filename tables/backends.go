package tables

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Static is an in-memory Lookup backed by a fixed map, for tables built
// from configuration rather than loaded from a file. It never reports
// Transient: a map lookup cannot fail.
type Static map[string]string

// Lookup implements Lookup.
func (s Static) Lookup(ctx context.Context, key string) (string, Result) {
	v, ok := s[key]
	if !ok {
		return "", Miss
	}
	return v, Hit
}

// File is a flat-file Lookup: one "key value" pair per line, fields
// separated by whitespace, blank lines and lines starting with "#"
// ignored. A key with no value (bare key on its own line) maps to the
// empty string, which is enough for DomainList/StringList membership
// tables that only care whether the key is present. The file is read
// once at construction; call Reload to pick up changes, e.g. on SIGHUP.
type File struct {
	path string

	mu   sync.RWMutex
	data map[string]string
	err  error // non-nil if the last (re)load failed
}

// NewFile loads path immediately and returns a ready-to-use File. The
// returned error is also preserved internally: a File that failed to
// load still behaves like a Lookup, returning Transient for every key
// until a successful Reload.
func NewFile(path string) (*File, error) {
	f := &File{path: path}
	err := f.Reload()
	return f, err
}

// Reload re-reads the backing file from disk, replacing the in-memory
// table atomically on success. On failure the previous table, if any,
// is kept and subsequent Lookups report Transient.
func (f *File) Reload() error {
	data, err := loadFile(f.path)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.err = err
		return err
	}
	f.data = data
	f.err = nil
	return nil
}

func loadFile(path string) (map[string]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table file: %w", err)
	}
	defer fh.Close()

	data := map[string]string{}
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])
		value := ""
		if len(fields) > 1 {
			value = strings.Join(fields[1:], " ")
		}
		data[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table file: %w", err)
	}
	return data, nil
}

// Lookup implements Lookup. If the most recent (re)load failed, every
// key reports Transient regardless of whether it was present in a
// previously loaded table, so callers never silently treat a broken
// table as an empty one.
func (f *File) Lookup(ctx context.Context, key string) (string, Result) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return "", Transient
	}
	v, ok := f.data[key]
	if !ok {
		return "", Miss
	}
	return v, Hit
}
