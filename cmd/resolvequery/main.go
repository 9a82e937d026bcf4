// Command resolvequery sends a single address to a running resolved and
// prints the reply, for operators debugging a routing decision.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/knotmail/resolved/proto"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: resolvequery [-addr server] address")
		fmt.Fprintln(os.Stderr, `       resolvequery -addr :8703 user@example.com`)
		flag.PrintDefaults()
	}
	addrFlag := flag.String("addr", "localhost:8703", "resolved address, or unix:/path/to/socket")
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := dial(*addrFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolvequery: connecting: %s\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	client := proto.NewClient(conn)
	reply, err := client.Resolve(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolvequery: resolving: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("transport=%s nexthop=%s recipient=%s flags=%d\n", reply.Transport, reply.Nexthop, reply.Recipient, reply.Flags)
}

func dial(addr string) (net.Conn, error) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		return net.Dial("unix", path)
	}
	return net.Dial("tcp", addr)
}
