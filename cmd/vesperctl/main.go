// Command vesperctl is a manual-testing client for the trading wire
// protocol: it connects, sends REGISTER, submits one or more ORDERs built
// from flags, and prints whatever the server pushes back. Grounded on
// _examples/saiputravu-Exchange/cmd/client/client.go's flag set
// (-server/-owner/-ticker/-side/-type/-price/-qty, "go readReports(conn)"
// async read loop, comma-separated -qty for firing several orders in one
// run) and on _examples/original_source/tests/TestClient.h's REGISTER-then-
// ORDER line sequence, adapted from the teacher's binary frame encoding to
// this project's line-delimited ASCII protocol (spec §6). It is a developer
// tool, not part of the core engine, and is exempt from spec §8's
// invariants.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:8888", "Address of the vesper trading server")
	owner := flag.String("owner", "", "Trader id to register as (compulsory)")
	ticker := flag.String("ticker", "ACME", "Symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.Float64("price", 100.0, "Limit price (ignored for market orders)")
	qtyStr := flag.String("qty", "10", "Quantity, or comma-separated list (e.g. 10,20,50) to fire several orders")
	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as %q\n", *serverAddr, *owner)

	go readPushes(conn)

	if _, err := fmt.Fprintf(conn, "REGISTER:%s\n", *owner); err != nil {
		log.Fatalf("Failed to send REGISTER: %v", err)
	}

	side := strings.ToUpper(*sideStr)
	if side != "BUY" && side != "SELL" {
		log.Fatalf("Unknown -side %q, expected buy or sell", *sideStr)
	}
	orderType := strings.ToUpper(*typeStr)
	if orderType != "LIMIT" && orderType != "MARKET" {
		log.Fatalf("Unknown -type %q, expected limit or market", *typeStr)
	}

	for _, qty := range parseQuantities(*qtyStr) {
		line := fmt.Sprintf("ORDER:%s:%s:%s:%s:%v:%s", *owner, *ticker, side, orderType, *price, qty)
		if _, err := fmt.Fprintln(conn, line); err != nil {
			log.Printf("Failed to send order (qty %s): %v", qty, err)
			continue
		}
		fmt.Printf("-> Sent %s %s %s @ %.2f qty %s\n", side, orderType, *ticker, *price, qty)
		time.Sleep(5 * time.Millisecond)
	}

	fmt.Println("\nListening for pushes... (Ctrl+C to exit)")
	select {}
}

// parseQuantities splits a comma-separated quantity list, skipping and
// warning about entries that don't parse, matching the teacher client's
// tolerant handling of -qty.
func parseQuantities(input string) []string {
	var out []string
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.ParseFloat(p, 64); err != nil {
			log.Printf("Warning: invalid quantity %q, skipping", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// readPushes prints every line the server sends until the connection
// closes, matching the teacher client's "go readReports(conn)" async model.
func readPushes(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 64*1024)
	for scanner.Scan() {
		fmt.Printf("\n[PUSH] %s\n", scanner.Text())
	}
	fmt.Println("\nConnection closed by server.")
	os.Exit(0)
}
