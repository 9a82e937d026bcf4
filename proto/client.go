package proto

import (
	"fmt"
	"net"
	"strconv"
)

// Client wraps a connection to a resolver server, for use by callers
// elsewhere in a larger mail system's queue or delivery agent.
type Client struct {
	conn net.Conn
}

// NewClient wraps an already-connected conn.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Reply is the parsed form of a resolver response.
type Reply struct {
	Transport string
	Nexthop   string
	Recipient string
	Flags     uint32
}

// Resolve sends addr as a request and returns the parsed reply. It is
// safe to call Resolve repeatedly on the same Client: one request is
// written and its reply fully read before the next is sent.
func (c *Client) Resolve(addr string) (Reply, error) {
	if err := writeAttr(c.conn, "addr", addr); err != nil {
		return Reply{}, fmt.Errorf("writing request: %w", err)
	}
	if err := writeSentinel(c.conn); err != nil {
		return Reply{}, fmt.Errorf("writing request: %w", err)
	}
	return c.readReply()
}

func (c *Client) readReply() (Reply, error) {
	var reply Reply
	want := []string{"transport", "nexthop", "recipient", "flags"}
	for _, expect := range want {
		name, value, err := readAttr(c.conn)
		if err != nil {
			return Reply{}, fmt.Errorf("reading reply: %w", err)
		}
		if name != expect {
			return Reply{}, fmt.Errorf("protocol violation: expected attribute %q, got %q", expect, name)
		}
		switch expect {
		case "transport":
			reply.Transport = value
		case "nexthop":
			reply.Nexthop = value
		case "recipient":
			reply.Recipient = value
		case "flags":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Reply{}, fmt.Errorf("parsing flags %q: %w", value, err)
			}
			reply.Flags = uint32(n)
		}
	}
	name, _, err := readAttr(c.conn)
	if err != nil {
		return Reply{}, fmt.Errorf("reading reply sentinel: %w", err)
	}
	if name != sentinel {
		return Reply{}, fmt.Errorf("protocol violation: expected end of reply, got attribute %q", name)
	}
	return reply, nil
}
