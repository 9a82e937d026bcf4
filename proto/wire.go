// Package proto implements the resolver's request/response wire
// protocol: a small attribute framing owned entirely by this
// repository, read and written by both the server and client ends.
//
// Each attribute on the wire is two length-prefixed strings: a uint32
// big-endian byte count followed by that many bytes, for the name,
// then the same again for the value. A request is the single
// attribute "addr" followed by a sentinel attribute with an empty
// name. A reply is the four attributes "transport", "nexthop",
// "recipient", "flags" in that fixed order, followed by the same
// sentinel.
package proto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxAttrLen bounds a single length-prefixed field, guarding a
// malformed or hostile peer from making a reader allocate an
// unbounded buffer.
const maxAttrLen = 1 << 20

// sentinel is the empty attribute name marking the end of a request or
// reply's attribute list.
const sentinel = ""

func writeString(w io.Writer, s string) error {
	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(s)))
	if _, err := w.Write(lenbuf[:]); err != nil {
		return fmt.Errorf("writing length: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("writing value: %w", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var lenbuf [4]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenbuf[:])
	if n > maxAttrLen {
		return "", fmt.Errorf("attribute length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading value: %w", err)
	}
	return string(buf), nil
}

// writeAttr writes one name/value attribute.
func writeAttr(w io.Writer, name, value string) error {
	if err := writeString(w, name); err != nil {
		return err
	}
	return writeString(w, value)
}

// writeSentinel writes the end-of-attributes marker.
func writeSentinel(w io.Writer) error {
	return writeString(w, sentinel)
}

// readAttr reads one name/value attribute. A name equal to sentinel
// means the caller has reached the end of the attribute list; value is
// not read in that case.
func readAttr(r io.Reader) (name, value string, err error) {
	name, err = readString(r)
	if err != nil {
		return "", "", err
	}
	if name == sentinel {
		return sentinel, "", nil
	}
	value, err = readString(r)
	if err != nil {
		return "", "", err
	}
	return name, value, nil
}
