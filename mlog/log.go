// Package mlog provides logging with log levels and fields.
//
// Each log level has a function to log with and without an error. Variable
// data belongs in fields; the log message itself should be a constant
// string, so messages stay greppable and stable across parameter changes.
//
// Log levels can be configured per originating package (field "pkg" in
// the output), e.g. resolve, proto, tables. The configuration is
// process-global, so every Log instance observes the same levels.
//
// Fatal* logs then exits the process; it is always printed regardless of
// configured level.
package mlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
)

// Logfmt selects logfmt-style (key=value) output instead of the default
// human-readable form. Set once at startup.
var Logfmt bool

type Level int

const (
	LevelPrint Level = 0 // Always printed, regardless of configured level.
	LevelFatal Level = 1 // Always printed, regardless of configured level.
	LevelError Level = 2
	LevelInfo  Level = 3
	LevelDebug Level = 4
	LevelTrace Level = 5
)

var LevelStrings = map[Level]string{
	LevelPrint: "print",
	LevelFatal: "fatal",
	LevelError: "error",
	LevelInfo:  "info",
	LevelDebug: "debug",
	LevelTrace: "trace",
}

var Levels = map[string]Level{
	"print": LevelPrint,
	"fatal": LevelFatal,
	"error": LevelError,
	"info":  LevelInfo,
	"debug": LevelDebug,
	"trace": LevelTrace,
}

// config holds a map[string]Level, mapping a package (field "pkg") to a log
// level. The empty string is the default/fallback level.
var config atomic.Value

func init() {
	config.Store(map[string]Level{"": LevelError})
}

// SetConfig atomically sets the log levels used by all Log instances.
func SetConfig(c map[string]Level) {
	config.Store(c)
}

// Pair is a field/value pair for a logged line.
type Pair struct {
	key   string
	value any
}

// Field is a shorthand for making a Pair.
func Field(k string, v any) Pair {
	return Pair{k, v}
}

// Log is a logger, potentially with its own fields added to every line it
// writes.
type Log struct {
	fields     []Pair
	moreFields func() []Pair
}

// New returns a new Log. Each log line gets field "pkg".
func New(pkg string) *Log {
	return &Log{fields: []Pair{{"pkg", pkg}}}
}

type ctxKey string

// CidKey is used with context.WithValue to carry a connection id for
// logging. See WithContext.
var CidKey ctxKey = "cid"

// WithCid adds field "cid". Connection ids in this codebase are ULID
// strings (see the proto package), not counters, so connections surviving a
// process restart still sort and never collide.
func (l *Log) WithCid(cid string) *Log {
	return l.Fields(Pair{"cid", cid})
}

// WithContext adds the cid carried in ctx, if any.
func (l *Log) WithContext(ctx context.Context) *Log {
	cidv := ctx.Value(CidKey)
	if cidv == nil {
		return l
	}
	cid, ok := cidv.(string)
	if !ok {
		return l
	}
	return l.WithCid(cid)
}

// Fields returns a Log with the given fields added; each line logged with
// it carries them.
func (l *Log) Fields(fields ...Pair) *Log {
	nl := *l
	nl.fields = append(fields, nl.fields...)
	return &nl
}

// MoreFields sets a function called just before logging to retrieve
// additional fields.
func (l *Log) MoreFields(fn func() []Pair) *Log {
	nl := *l
	nl.moreFields = fn
	return &nl
}

func (l *Log) Trace(text string) bool { return l.logx(LevelTrace, nil, text) }

func (l *Log) Fatal(text string, fields ...Pair) { l.Fatalx(text, nil, fields...) }
func (l *Log) Fatalx(text string, err error, fields ...Pair) {
	l.plog(LevelFatal, err, text, fields...)
	os.Exit(1)
}

func (l *Log) Print(text string, fields ...Pair) bool {
	return l.logx(LevelPrint, nil, text, fields...)
}

func (l *Log) Debug(text string, fields ...Pair) bool {
	return l.logx(LevelDebug, nil, text, fields...)
}

func (l *Log) Info(text string, fields ...Pair) bool { return l.logx(LevelInfo, nil, text, fields...) }

func (l *Log) Error(text string, fields ...Pair) bool {
	return l.logx(LevelError, nil, text, fields...)
}
func (l *Log) Errorx(text string, err error, fields ...Pair) bool {
	return l.logx(LevelError, err, text, fields...)
}

func (l *Log) logx(level Level, err error, text string, fields ...Pair) bool {
	if ok, _ := l.match(level); !ok {
		return false
	}
	l.plog(level, err, text, fields...)
	return true
}

func logfmtValue(s string) string {
	for _, c := range s {
		if c == '"' || c == '\\' || c <= ' ' || c == '=' || c >= 0x7f {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	switch r := v.(type) {
	case string:
		return r
	case int:
		return strconv.Itoa(r)
	case int64:
		return strconv.FormatInt(r, 10)
	case uint32:
		return strconv.FormatUint(uint64(r), 10)
	case bool:
		if r {
			return "true"
		}
		return "false"
	case []string:
		return "[" + strings.Join(r, ",") + "]"
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ""
	}
	if r, ok := v.(fmt.Stringer); ok {
		return r.String()
	}
	if rv.Kind() == reflect.Ptr {
		return stringValue(rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}

func (l *Log) plog(level Level, err error, text string, fields ...Pair) {
	fields = append(l.fields, fields...)
	if l.moreFields != nil {
		fields = append(fields, l.moreFields()...)
	}
	// Build up a buffer so we write the whole line atomically; otherwise
	// concurrent goroutines can interleave partial lines.
	b := &bytes.Buffer{}
	if Logfmt {
		fmt.Fprintf(b, "l=%s m=%s", LevelStrings[level], logfmtValue(text))
		if err != nil {
			fmt.Fprintf(b, " err=%s", logfmtValue(err.Error()))
		}
		for _, kv := range fields {
			fmt.Fprintf(b, " %s=%s", kv.key, logfmtValue(stringValue(kv.value)))
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(b, "%s: %s", LevelStrings[level], logfmtValue(text))
		if err != nil {
			fmt.Fprintf(b, ": %s", logfmtValue(err.Error()))
		}
		if len(fields) > 0 {
			fmt.Fprint(b, " (")
			for i, kv := range fields {
				if i > 0 {
					fmt.Fprint(b, "; ")
				}
				fmt.Fprintf(b, "%s: %s", kv.key, logfmtValue(stringValue(kv.value)))
			}
			fmt.Fprint(b, ")")
		}
		b.WriteString("\n")
	}
	os.Stderr.Write(b.Bytes())
}

func (l *Log) match(level Level) (bool, Level) {
	if level == LevelPrint || level == LevelFatal {
		return true, level
	}

	cl := config.Load().(map[string]Level)

	seen := false
	var high Level
	for _, kv := range l.fields {
		if kv.key != "pkg" {
			continue
		}
		pkg, ok := kv.value.(string)
		if !ok {
			continue
		}
		v, ok := cl[pkg]
		if v > high {
			high = v
		}
		if ok && v >= level {
			return true, high
		}
		seen = seen || ok
	}
	if seen {
		return false, high
	}
	v, ok := cl[""]
	if v > high {
		high = v
	}
	return ok && v >= level, v
}

type errWriter struct {
	log   *Log
	level Level
	msg   string
}

func (w *errWriter) Write(buf []byte) (int, error) {
	err := errors.New(strings.TrimSpace(string(buf)))
	w.log.logx(w.level, err, w.msg)
	return len(buf), nil
}

// ErrWriter returns a writer that turns each write into a log line at level
// with msg and the written content as the error. Useful for plugging into
// an http.Server's ErrorLog.
func ErrWriter(log *Log, level Level, msg string) io.Writer {
	return &errWriter{log, level, msg}
}
