package proto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/knotmail/resolved/mlog"
)

var log = mlog.New("proto")

// Handler resolves one address, returning the four reply attributes.
// It is implemented by *resolve.Resolver in this repository's own
// wiring, but proto has no dependency on the resolve package: the
// framing and the decision logic are independent concerns.
type Handler func(ctx context.Context, addr string) (transport, nexthop, recipient string, flags uint32)

// Server reads framed requests from accepted connections and writes
// framed replies, one request at a time per connection, strictly in
// order. Serve runs ServeConn in its own goroutine for every accepted
// connection; ServeConn can also be called directly to handle exactly
// one connection to completion.
type Server struct {
	Listener net.Listener
	Handle   Handler
}

// NewServer returns a Server that accepts on ln and calls handle for
// every request it reads.
func NewServer(ln net.Listener, handle Handler) *Server {
	return &Server{Listener: ln, Handle: handle}
}

// Serve accepts connections from the listener until ctx is canceled or
// Accept returns an error, serving each one in its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Listener.Close()
	}()
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}
		go s.ServeConn(ctx, conn)
	}
}

// ServeConn reads requests from conn and writes replies until conn is
// closed or a protocol violation occurs, then closes conn. Strict
// attribute mode: a request with attributes other than "addr", or
// missing "addr" before the sentinel, aborts the connection.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	cid := newCid()
	l := log.WithCid(cid)
	for {
		addr, err := readRequest(conn)
		if err != nil {
			if !isCleanClose(err) {
				l.Debug("reading request", mlog.Field("err", err.Error()))
			}
			return
		}
		transport, nexthop, recipient, flags := s.Handle(ctx, addr)
		if err := writeReply(conn, transport, nexthop, recipient, flags); err != nil {
			l.Info("writing reply", mlog.Field("err", err.Error()))
			return
		}
	}
}

func isCleanClose(err error) bool {
	return errors.Is(err, io.EOF)
}

// readRequest reads one request (the single attribute "addr" followed
// by the sentinel) in strict mode.
func readRequest(r io.Reader) (addr string, err error) {
	name, value, err := readAttr(r)
	if err != nil {
		return "", err
	}
	if name == sentinel {
		return "", fmt.Errorf("protocol violation: missing required attribute %q", "addr")
	}
	if name != "addr" {
		return "", fmt.Errorf("protocol violation: unexpected attribute %q", name)
	}
	addr = value

	name, _, err = readAttr(r)
	if err != nil {
		return "", err
	}
	if name != sentinel {
		return "", fmt.Errorf("protocol violation: unexpected attribute %q after addr", name)
	}
	return addr, nil
}

// writeReply writes the four reply attributes in their fixed order,
// followed by the sentinel.
func writeReply(w io.Writer, transport, nexthop, recipient string, flags uint32) error {
	if err := writeAttr(w, "transport", transport); err != nil {
		return err
	}
	if err := writeAttr(w, "nexthop", nexthop); err != nil {
		return err
	}
	if err := writeAttr(w, "recipient", recipient); err != nil {
		return err
	}
	if err := writeAttr(w, "flags", strconv.FormatUint(uint64(flags), 10)); err != nil {
		return err
	}
	return writeSentinel(w)
}
