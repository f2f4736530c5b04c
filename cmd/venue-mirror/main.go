// Command venue-mirror subscribes to the market-data feed and keeps a
// local mirror book in sync with it. It prints nothing per event; it
// logs only the join and any exit error.
package main

import (
	"flag"
	"net"
	"os"

	"github.com/yanun0323/logs"

	"venue/internal/mdsub"
	"venue/internal/orderbook"
)

func main() {
	mcGroup := flag.String("mcgroup", "239.0.0.1:9001", "market-data multicast group:port to join")
	ifaceName := flag.String("iface", "", "network interface to join the multicast group on (default route if empty)")
	flag.Parse()

	var iface *net.Interface
	var err error
	if *ifaceName != "" {
		iface, err = net.InterfaceByName(*ifaceName)
		if err != nil {
			logs.Errorf("venue-mirror: %v", err)
			os.Exit(1)
		}
	}

	mirror := orderbook.NewLimitOrderBook(nil)
	sub, err := mdsub.NewSubscriber(*mcGroup, iface, mirror)
	if err != nil {
		logs.Errorf("venue-mirror: %v", err)
		os.Exit(1)
	}
	defer sub.Close()

	logs.Infof("venue-mirror: joined %s", *mcGroup)
	if err := sub.Run(); err != nil {
		logs.Errorf("venue-mirror: exited: %v", err)
		os.Exit(1)
	}
}
