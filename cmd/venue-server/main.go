// Command venue-server runs the matching engine: the order-entry TCP
// server and the market-data UDP publisher sharing one LimitOrderBook.
// Wiring constructs the infrastructure pieces bottom-up under commented
// section headers, then blocks on the server's accept loop.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/yanun0323/logs"

	"venue/internal/md"
	"venue/internal/oeserver"
	"venue/internal/orderbook"
)

func main() {
	tcpAddr := flag.String("tcp", ":9000", "order-entry TCP listen address")
	mcGroup := flag.String("mcgroup", "239.0.0.1:9001", "market-data multicast group:port")
	ttl := flag.Int("ttl", 1, "market-data multicast TTL")
	ifaceName := flag.String("iface", "", "outbound network interface for market-data multicast (default route if empty)")
	accountsFlag := flag.String("accounts", "", "comma-separated username:password pairs, e.g. ally:pw1,bob:pw2 (usernames at most 4 bytes)")
	flag.Parse()

	// ---------------- Accounts ----------------

	accounts, err := parseAccounts(*accountsFlag)
	if err != nil {
		logs.Errorf("venue-server: %v", err)
		os.Exit(1)
	}
	registry, err := orderbook.NewRegistry(accounts)
	if err != nil {
		logs.Errorf("venue-server: %v", err)
		os.Exit(1)
	}

	// ---------------- Market data ----------------

	var iface *net.Interface
	if *ifaceName != "" {
		iface, err = net.InterfaceByName(*ifaceName)
		if err != nil {
			logs.Errorf("venue-server: %v", err)
			os.Exit(1)
		}
	}
	publisher, err := md.NewPublisher(*mcGroup, *ttl, iface, func() int64 { return time.Now().UnixNano() })
	if err != nil {
		logs.Errorf("venue-server: %v", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// ---------------- Book ----------------

	book := orderbook.NewLimitOrderBook(publisher)

	// ---------------- Order-entry server ----------------

	srv, err := oeserver.NewServer(*tcpAddr, book, registry)
	if err != nil {
		logs.Errorf("venue-server: %v", err)
		os.Exit(1)
	}

	go adminCLI(publisher)

	logs.Infof("venue-server: order entry on %s, market data on %s", srv.Addr(), *mcGroup)
	if err := srv.Run(); err != nil {
		logs.Errorf("venue-server: accept loop exited: %v", err)
		os.Exit(1)
	}
}

// adminCLI reads start/end from stdin and emits the corresponding
// market-data session-boundary events, per the server-side admin
// surface described in the external interfaces.
func adminCLI(publisher *md.Publisher) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "start":
			publisher.StartOfSession()
		case "end":
			publisher.EndOfSession()
		default:
			fmt.Println("commands: start, end")
		}
	}
}

func parseAccounts(s string) ([]orderbook.AccountConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []orderbook.AccountConfig
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid account entry %q, want username:password", pair)
		}
		out = append(out, orderbook.AccountConfig{Username: parts[0], Password: parts[1]})
	}
	return out, nil
}
