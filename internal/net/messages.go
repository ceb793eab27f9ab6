// Package net implements matchcore's wire protocol and TCP server: a
// small length-prefixed binary framing. Tickers are variable-length
// rather than a fixed four-character symbol, since matchcore trades an
// open-ended instrument universe, and price travels as a fixed-point
// scaled int64 rather than a float, so a decimal.Decimal round-trips
// exactly instead of picking up binary floating-point error.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nyxbook/matchcore/internal/common"
)

// priceScale fixes prices on the wire at 6 decimal places: a
// decimal.Decimal price round-trips through scalePrice/unscalePrice
// exactly as long as it does not need more precision than that;
// scalePrice truncates any further digits.
const priceScale = 1_000_000

func scalePrice(p decimal.Decimal) int64 {
	return p.Mul(decimal.NewFromInt(priceScale)).IntPart()
}

func unscalePrice(v int64) decimal.Decimal {
	return decimal.New(v, -6)
}

var (
	ErrInvalidMessageType = errors.New("net: invalid message type")
	ErrMessageTooShort    = errors.New("net: message too short for declared field lengths")
)

// MessageType identifies a client->server request.
type MessageType uint8

const (
	MsgNewOrder MessageType = iota
	MsgCancelOrder
)

// ReportType identifies a server->client response.
type ReportType uint8

const (
	ReportExecution ReportType = iota
	ReportError
)

// baseHeaderLen is the 1-byte MessageType prefix every client request
// carries ahead of its type-specific body.
const baseHeaderLen = 1

// Request is a parsed client->server message, already resolved to its
// concrete type by parseRequest.
type Request interface {
	requestType() MessageType
}

// NewOrderRequest carries one limit or market order submission. Side,
// OrderType, PriceScaled, and Quantity are fixed-width; Symbol and
// ParticipantID are length-prefixed variable strings.
type NewOrderRequest struct {
	OrderType     common.OrderType
	Side          common.Side
	PriceScaled   int64
	Quantity      uint64
	Symbol        string
	ParticipantID string
}

func (NewOrderRequest) requestType() MessageType { return MsgNewOrder }

// Price decodes the request's fixed-point price back to a
// decimal.Decimal. For market orders the server ignores this field,
// whatever value the client sent in it.
func (r NewOrderRequest) Price() decimal.Decimal { return unscalePrice(r.PriceScaled) }

// newOrderFixedLen is OrderType(1) + Side(1) + PriceScaled(8) +
// Quantity(8) + SymbolLen(1) + ParticipantLen(1).
const newOrderFixedLen = 1 + 1 + 8 + 8 + 1 + 1

func parseNewOrder(body []byte) (NewOrderRequest, error) {
	if len(body) < newOrderFixedLen {
		return NewOrderRequest{}, ErrMessageTooShort
	}
	var r NewOrderRequest
	r.OrderType = common.OrderType(body[0])
	r.Side = common.Side(body[1])
	r.PriceScaled = int64(binary.BigEndian.Uint64(body[2:10]))
	r.Quantity = binary.BigEndian.Uint64(body[10:18])
	symbolLen := int(body[18])
	participantLen := int(body[19])

	body = body[20:]
	if len(body) < symbolLen+participantLen {
		return NewOrderRequest{}, ErrMessageTooShort
	}
	r.Symbol = string(body[:symbolLen])
	r.ParticipantID = string(body[symbolLen : symbolLen+participantLen])
	return r, nil
}

// CancelOrderRequest carries a cancel command targeting a previously
// submitted order id.
type CancelOrderRequest struct {
	Symbol        string
	ParticipantID string
	OrderID       string
}

func (CancelOrderRequest) requestType() MessageType { return MsgCancelOrder }

// cancelOrderFixedLen is SymbolLen(1) + ParticipantLen(1) + OrderIDLen(1).
const cancelOrderFixedLen = 1 + 1 + 1

func parseCancelOrder(body []byte) (CancelOrderRequest, error) {
	if len(body) < cancelOrderFixedLen {
		return CancelOrderRequest{}, ErrMessageTooShort
	}
	symbolLen := int(body[0])
	participantLen := int(body[1])
	orderIDLen := int(body[2])

	body = body[3:]
	if len(body) < symbolLen+participantLen+orderIDLen {
		return CancelOrderRequest{}, ErrMessageTooShort
	}
	r := CancelOrderRequest{
		Symbol:        string(body[:symbolLen]),
		ParticipantID: string(body[symbolLen : symbolLen+participantLen]),
		OrderID:       string(body[symbolLen+participantLen : symbolLen+participantLen+orderIDLen]),
	}
	return r, nil
}

// parseRequest reads the leading MessageType byte and dispatches to the
// matching body parser.
func parseRequest(msg []byte) (Request, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	switch MessageType(msg[0]) {
	case MsgNewOrder:
		return parseNewOrder(msg[baseHeaderLen:])
	case MsgCancelOrder:
		return parseCancelOrder(msg[baseHeaderLen:])
	default:
		return nil, ErrInvalidMessageType
	}
}

// Report is one execution or error report sent back to a connected
// participant: an ExecutionReport put on the wire.
type Report struct {
	Type        ReportType
	Symbol      string
	Side        common.Side
	PriceScaled int64
	Quantity    uint64
	OrderID     string
	Err         string
}

// executionReport builds a wire Report from a settled common.ExecutionReport.
func executionReport(r common.ExecutionReport) Report {
	return Report{
		Type:        ReportExecution,
		Symbol:      r.Symbol,
		Side:        r.Side,
		PriceScaled: scalePrice(r.Price),
		Quantity:    r.Quantity,
		OrderID:     r.OrderID,
	}
}

func errorReport(err error) Report {
	return Report{Type: ReportError, Err: fmt.Sprint(err)}
}

// reportFixedLen is Type(1) + Side(1) + PriceScaled(8) + Quantity(8) +
// SymbolLen(1) + OrderIDLen(1) + ErrLen(2).
const reportFixedLen = 1 + 1 + 8 + 8 + 1 + 1 + 2

// Serialize encodes r for transmission.
func (r Report) Serialize() []byte {
	buf := make([]byte, reportFixedLen+len(r.Symbol)+len(r.OrderID)+len(r.Err))
	buf[0] = byte(r.Type)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.PriceScaled))
	binary.BigEndian.PutUint64(buf[10:18], r.Quantity)
	buf[18] = byte(len(r.Symbol))
	buf[19] = byte(len(r.OrderID))
	binary.BigEndian.PutUint16(buf[20:22], uint16(len(r.Err)))

	offset := reportFixedLen
	offset += copy(buf[offset:], r.Symbol)
	offset += copy(buf[offset:], r.OrderID)
	copy(buf[offset:], r.Err)
	return buf
}

// DeserializeReport decodes a Report previously produced by Serialize;
// used by cmd/client to render reports read off the wire.
func DeserializeReport(buf []byte) (Report, error) {
	if len(buf) < reportFixedLen {
		return Report{}, ErrMessageTooShort
	}
	var r Report
	r.Type = ReportType(buf[0])
	r.Side = common.Side(buf[1])
	r.PriceScaled = int64(binary.BigEndian.Uint64(buf[2:10]))
	r.Quantity = binary.BigEndian.Uint64(buf[10:18])
	symbolLen := int(buf[18])
	orderIDLen := int(buf[19])
	errLen := int(binary.BigEndian.Uint16(buf[20:22]))

	body := buf[reportFixedLen:]
	if len(body) < symbolLen+orderIDLen+errLen {
		return Report{}, ErrMessageTooShort
	}
	r.Symbol = string(body[:symbolLen])
	r.OrderID = string(body[symbolLen : symbolLen+orderIDLen])
	r.Err = string(body[symbolLen+orderIDLen : symbolLen+orderIDLen+errLen])
	return r, nil
}

// Price decodes a Report's fixed-point price back to a decimal.Decimal.
func (r Report) Price() decimal.Decimal { return unscalePrice(r.PriceScaled) }
