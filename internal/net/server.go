package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"github.com/nyxbook/matchcore/internal/common"
)

const (
	maxMessageSize     = 4 * 1024
	defaultConnTimeout = 30 * time.Second
)

var ErrClientDoesNotExist = errors.New("net: no connected session for participant")

// Engine is the subset of *dispatcher.Dispatcher the server drives.
// Keeping it as an interface lets tests stand up a Server against a
// fake without a real Dispatcher.
type Engine interface {
	SubmitLimit(participantID, symbol string, side common.Side, price decimal.Decimal, size uint64) (string, bool)
	SubmitMarket(participantID, symbol string, side common.Side, size uint64) (string, bool)
	SubmitCancel(participantID, symbol, orderID string) bool
}

// Server is matchcore's TCP front door: one goroutine per connection,
// all supervised by a tomb.Tomb. Sessions are keyed by participant id
// rather than by local connection address, since keying by the
// connection's own address conflates "which socket" with "which
// participant" and can never route a report to the right client once a
// connection churns.
type Server struct {
	address string
	port    int
	engine  Engine

	mu       sync.Mutex
	sessions map[string]net.Conn

	t      tomb.Tomb
	cancel context.CancelFunc
}

// New constructs a Server that will listen on address:port and submit
// parsed requests to engine.
func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   engine,
		sessions: make(map[string]net.Conn),
	}
}

// Run accepts connections until ctx is cancelled or Shutdown is called,
// spawning one supervised goroutine per connection.
func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("net: listen: %w", err)
	}
	defer listener.Close()

	s.t.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	log.Info().Str("address", listener.Addr().String()).Msg("net: server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return s.t.Wait()
			default:
				log.Error().Err(err).Msg("net: accept failed")
				continue
			}
		}
		s.t.Go(func() error {
			s.handleConnection(conn)
			return nil
		})
	}
}

// Shutdown stops the accept loop and waits for in-flight connections to
// close.
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.t.Kill(nil)
	return s.t.Wait()
}

// handleConnection reads requests off conn until it closes or a read
// fails. Requests carry no overall length prefix: the bytes returned by
// each Read are parsed as exactly one request. Each request is decoded
// and submitted to the
// engine inline — matchcore's dispatcher already serializes per-symbol
// access, so there is nothing a separate session-handler goroutine
// would buy here.
func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("net: close failed")
		}
	}()

	buf := make([]byte, maxMessageSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
			log.Error().Err(err).Msg("net: set read deadline")
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			s.forgetSessionsFor(conn)
			return
		}

		req, err := parseRequest(buf[:n])
		if err != nil {
			log.Warn().Err(err).Str("address", conn.RemoteAddr().String()).Msg("net: malformed request")
			s.send(conn, errorReport(err))
			continue
		}
		s.handleRequest(conn, req)
	}
}

func (s *Server) handleRequest(conn net.Conn, req Request) {
	switch r := req.(type) {
	case NewOrderRequest:
		s.registerSession(r.ParticipantID, conn)
		s.submitNewOrder(r)
	case CancelOrderRequest:
		s.registerSession(r.ParticipantID, conn)
		s.engine.SubmitCancel(r.ParticipantID, r.Symbol, r.OrderID)
	default:
		log.Error().Msg("net: unrecognized request type")
	}
}

func (s *Server) submitNewOrder(r NewOrderRequest) {
	switch r.OrderType {
	case common.LimitOrder:
		if _, ok := s.engine.SubmitLimit(r.ParticipantID, r.Symbol, r.Side, r.Price(), r.Quantity); !ok {
			s.reportToParticipant(r.ParticipantID, errorReport(fmt.Errorf("net: limit order rejected")))
		}
	case common.MarketOrder:
		if _, ok := s.engine.SubmitMarket(r.ParticipantID, r.Symbol, r.Side, r.Quantity); !ok {
			s.reportToParticipant(r.ParticipantID, errorReport(fmt.Errorf("net: market order rejected")))
		}
	default:
		s.reportToParticipant(r.ParticipantID, errorReport(fmt.Errorf("net: unsupported order type %v", r.OrderType)))
	}
}

// Report implements participant.Reporter: the dispatcher's Registry
// calls this once per side of every settled trade, and the server
// forwards it to whichever connection last identified itself as that
// participant.
func (s *Server) Report(participantID string, report common.ExecutionReport) {
	s.reportToParticipant(participantID, executionReport(report))
}

func (s *Server) reportToParticipant(participantID string, r Report) {
	s.mu.Lock()
	conn, ok := s.sessions[participantID]
	s.mu.Unlock()
	if !ok {
		log.Warn().Str("participant", participantID).Err(ErrClientDoesNotExist).Msg("net: cannot deliver report")
		return
	}
	s.send(conn, r)
}

func (s *Server) send(conn net.Conn, r Report) {
	if _, err := conn.Write(r.Serialize()); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("net: write failed")
	}
}

func (s *Server) registerSession(participantID string, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[participantID] = conn
}

func (s *Server) forgetSessionsFor(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.sessions {
		if c == conn {
			delete(s.sessions, id)
		}
	}
}
