package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nyxbook/matchcore/internal/common"
	matchnet "github.com/nyxbook/matchcore/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the matchcore server")
	participant := flag.String("participant", "", "participant id (compulsory)")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel']")

	symbol := flag.String("symbol", "AAPL", "symbol to trade")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "order type: 'limit' or 'market'")
	price := flag.String("price", "100.00", "limit price (ignored for market orders)")
	qtyStr := flag.String("qty", "10", "quantity, or a comma-separated list (e.g. 10,20,50)")

	orderID := flag.String("order-id", "", "order id to cancel")

	flag.Parse()

	if *participant == "" {
		fmt.Println("Error: -participant is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *participant)

	go readReports(conn)

	side := common.Buy
	if strings.EqualFold(*sideStr, "sell") {
		side = common.Sell
	}

	orderType := common.LimitOrder
	if strings.EqualFold(*typeStr, "market") {
		orderType = common.MarketOrder
	}

	switch strings.ToLower(*action) {
	case "place":
		limitPrice, err := decimal.NewFromString(*price)
		if err != nil {
			log.Fatalf("invalid -price %q: %v", *price, err)
		}
		for _, qty := range parseQuantities(*qtyStr) {
			if err := sendNewOrder(conn, *participant, *symbol, orderType, side, limitPrice, qty); err != nil {
				log.Printf("failed to place order (qty %d): %v", qty, err)
				continue
			}
			fmt.Printf("-> sent %s %s order: %s %d @ %s\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr), *symbol, qty, limitPrice)
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -order-id is required for cancellation")
		}
		if err := sendCancelOrder(conn, *participant, *symbol, *orderID); err != nil {
			log.Printf("failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> sent cancel request for %s\n", *orderID)
		}

	default:
		log.Fatalf("unknown action %q", *action)
	}

	fmt.Println("\nlistening for reports... (ctrl+C to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	var out []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		val, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			log.Printf("warning: invalid quantity %q, skipping", p)
			continue
		}
		out = append(out, val)
	}
	return out
}

func sendNewOrder(conn net.Conn, participantID, symbol string, orderType common.OrderType, side common.Side, price decimal.Decimal, qty uint64) error {
	priceScaled := price.Mul(decimal.NewFromInt(1_000_000)).IntPart()

	body := make([]byte, 0, 1+20+len(symbol)+len(participantID))
	body = append(body, byte(matchnet.MsgNewOrder))
	body = append(body, byte(orderType), byte(side))

	priceBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(priceBuf, uint64(priceScaled))
	body = append(body, priceBuf...)

	qtyBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(qtyBuf, qty)
	body = append(body, qtyBuf...)

	body = append(body, byte(len(symbol)), byte(len(participantID)))
	body = append(body, symbol...)
	body = append(body, participantID...)

	_, err := conn.Write(body)
	return err
}

func sendCancelOrder(conn net.Conn, participantID, symbol, orderID string) error {
	body := make([]byte, 0, 1+3+len(symbol)+len(participantID)+len(orderID))
	body = append(body, byte(matchnet.MsgCancelOrder))
	body = append(body, byte(len(symbol)), byte(len(participantID)), byte(len(orderID)))
	body = append(body, symbol...)
	body = append(body, participantID...)
	body = append(body, orderID...)

	_, err := conn.Write(body)
	return err
}

// readReports continuously reads and renders Report frames from the
// server. Frames here are not length-prefixed on the wire beyond their
// own fixed header plus declared variable-length fields, mirroring the
// server's Report.Serialize layout, so the client reads the fixed
// header first to learn how many trailing bytes to pull.
func readReports(conn net.Conn) {
	const reportFixedLen = 1 + 1 + 8 + 8 + 1 + 1 + 2

	for {
		header := make([]byte, reportFixedLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		symbolLen := int(header[18])
		orderIDLen := int(header[19])
		errLen := int(binary.BigEndian.Uint16(header[20:22]))

		rest := make([]byte, symbolLen+orderIDLen+errLen)
		if _, err := io.ReadFull(conn, rest); err != nil {
			log.Printf("error reading report body: %v", err)
			return
		}

		report, err := matchnet.DeserializeReport(append(header, rest...))
		if err != nil {
			log.Printf("error decoding report: %v", err)
			continue
		}

		if report.Type == matchnet.ReportError {
			fmt.Printf("\n[ERROR] %s\n", report.Err)
			continue
		}

		sideStr := "BUY"
		if report.Side == common.Sell {
			sideStr = "SELL"
		}
		fmt.Printf("\n[EXECUTION] %s %s | qty %d | price %s | order %s\n",
			sideStr, report.Symbol, report.Quantity, report.Price(), report.OrderID)
	}
}
