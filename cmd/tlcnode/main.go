// Command tlcnode runs a single node process: it boots a chain engine
// seeded by a freshly generated account, listens for inbound peer
// connections, optionally dials a list of seed peers, and serves keepalive
// and initial block download in the background for as long as the process
// runs.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kalymgr/tlcd/chain"
	"github.com/kalymgr/tlcd/config"
	"github.com/kalymgr/tlcd/logs"
	"github.com/kalymgr/tlcd/node"
	"github.com/kalymgr/tlcd/primitives"
)

var log = logs.Get(logs.TagNode)

func main() {
	listenAddr := flag.String("listen", "0.0.0.0:8010", "address to listen on")
	testnet := flag.Bool("testnet", false, "use testnet parameters instead of mainnet")
	seeds := flag.String("connect", "", "comma-separated list of host:port seed peers to dial on startup")
	logLevel := flag.String("loglevel", "info", "log level: trace, debug, info, warn, error, critical")
	flag.Parse()

	logs.SetAllLevels(*logLevel)

	params := config.MainNetParams
	if *testnet {
		params = config.TestNetParams
	}

	creator, err := primitives.NewAccount()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tlcnode: generating genesis account: %v\n", err)
		os.Exit(1)
	}
	log.Infof("genesis account address: %s", creator.Address())

	engine := chain.NewEngine(params, creator)

	host, portStr, err := net.SplitHostPort(*listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tlcnode: invalid -listen address %q: %v\n", *listenAddr, err)
		os.Exit(1)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tlcnode: invalid -listen port %q: %v\n", portStr, err)
		os.Exit(1)
	}
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	n := node.New(params, engine, host, port)
	if err := n.Listen(*listenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "tlcnode: %v\n", err)
		os.Exit(1)
	}

	for _, seed := range splitSeeds(*seeds) {
		if err := n.ConnectTo(seed); err != nil {
			log.Errorf("connecting to seed %s: %v", seed, err)
		}
	}

	stop := make(chan struct{})
	go n.RunKeepalive(stop)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infof("shutting down")
	close(stop)
	n.Shutdown()
}

func splitSeeds(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
