// Command resolved serves address resolution over the attribute
// protocol, reloading its configuration on SIGHUP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knotmail/resolved/mlog"
	"github.com/knotmail/resolved/proto"
	"github.com/knotmail/resolved/rconf"
	"github.com/knotmail/resolved/resolve"
)

var log = mlog.New("resolved")

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: resolved config.conf")
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	configPath := args[0]

	st, err := rconf.Load(configPath)
	if err != nil {
		log.Fatalx("loading configuration", err)
	}
	applyLogLevels(st)

	var current atomic.Pointer[resolve.Resolver]
	if err := loadInto(configPath, &current); err != nil {
		log.Fatalx("loading configuration", err)
	}

	ln, err := listen(st.Listen)
	if err != nil {
		log.Fatalx("listen", err)
	}
	log.Print("listening", mlog.Field("addr", st.Listen))

	if st.MetricsListen != "" {
		go serveMetrics(st.MetricsListen)
	}

	handle := func(ctx context.Context, addr string) (string, string, string, uint32) {
		r := current.Load()
		res, err := r.Resolve(ctx, addr, "")
		if err != nil {
			log.Info("resolve error", mlog.Field("addr", addr), mlog.Field("err", err.Error()))
			return "", "", addr, uint32(resolve.FlagFail)
		}
		return res.Channel, res.Nexthop, res.Nextrcpt, uint32(res.Flags)
	}
	srv := proto.NewServer(ln, handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			log.Print("reloading configuration", mlog.Field("path", configPath))
			if err := loadInto(configPath, &current); err != nil {
				log.Errorx("reloading configuration, keeping previous", err)
				continue
			}
			if st, err := rconf.Load(configPath); err == nil {
				applyLogLevels(st)
			}
		}
	}()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigterm
		log.Print("shutting down", mlog.Field("signal", sig.String()))
		cancel()
		ln.Close()
	}()

	if err := srv.Serve(ctx); err != nil {
		log.Fatalx("serve", err)
	}
}

// loadInto parses the configuration at path, builds a fresh Resolver
// from it, and stores it atomically, so in-flight Resolve calls keep
// using the previous configuration until they return.
func loadInto(path string, current *atomic.Pointer[resolve.Resolver]) error {
	st, err := rconf.Load(path)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	tbls, cfg, err := st.Build()
	if err != nil {
		return fmt.Errorf("building tables: %w", err)
	}
	current.Store(resolve.New(tbls, cfg, nil))
	return nil
}

func applyLogLevels(st *rconf.Static) {
	levels := map[string]mlog.Level{"": mlog.Levels[st.LogLevel]}
	for pkg, name := range st.PackageLogLevels {
		if lvl, ok := mlog.Levels[name]; ok {
			levels[pkg] = lvl
		}
	}
	mlog.SetConfig(levels)
}

func listen(addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		os.Remove(path)
		return net.Listen("unix", path)
	}
	return net.Listen("tcp", addr)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Print("serving metrics", mlog.Field("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorx("metrics server stopped", err)
	}
}
