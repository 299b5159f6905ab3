package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gogrpc "google.golang.org/grpc"

	platformgrpc "github.com/louisbranch/dicebox/internal/platform/grpc"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicebox/internal/services/shared/roller"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	maxMessageBodyRunes     = 2000
	maxClientMessageIDRunes = 128
	maxRoomNameRunes        = 64
	maxPlayerNameRunes      = 64

	maxRoomMessages      = 1000
	maxIdempotencyRecord = 4000

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Dice rolls expressions for the table. *diceservice.Client and
// diceservice.Local satisfy it.
type Dice interface {
	Evaluate(ctx context.Context, req diceservice.EvaluateRequest) (diceservice.Roll, error)
	ListOperators(ctx context.Context) (string, error)
}

// Config defines the inputs for the table process.
type Config struct {
	HTTPAddr string
	// DiceAddr is the dice gRPC service. Empty rolls in process.
	DiceAddr          string
	EvalTimeout       time.Duration
	GRPCDialTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the table HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	diceConn        *gogrpc.ClientConn
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type joinPayload struct {
	Room string `json:"room"`
	Name string `json:"name,omitempty"`
}

type joinedPayload struct {
	Room             string `json:"room"`
	LatestSequenceID int64  `json:"latest_sequence_id"`
	ServerTime       string `json:"server_time"`
}

type sendPayload struct {
	ClientMessageID string `json:"client_message_id"`
	Body            string `json:"body"`
}

type historyBeforePayload struct {
	BeforeSequenceID int64 `json:"before_sequence_id"`
	Limit            int   `json:"limit"`
}

type messageEnvelope struct {
	Message tableMessage `json:"message"`
}

// tableMessage is one entry of a room log. Roll messages carry the
// expression and either its display or the evaluation error.
type tableMessage struct {
	MessageID       string `json:"message_id"`
	Room            string `json:"room"`
	SequenceID      int64  `json:"sequence_id"`
	SentAt          string `json:"sent_at"`
	Kind            string `json:"kind"`
	Actor           string `json:"actor"`
	Body            string `json:"body"`
	Expression      string `json:"expression,omitempty"`
	Display         string `json:"display,omitempty"`
	Error           string `json:"error,omitempty"`
	Seed            int64  `json:"seed,omitempty"`
	ClientMessageID string `json:"client_message_id,omitempty"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status     string `json:"status"`
	MessageID  string `json:"message_id,omitempty"`
	SequenceID int64  `json:"sequence_id,omitempty"`
	Count      int    `json:"count,omitempty"`
}

type wsSession struct {
	mu     sync.Mutex
	name   string
	locale string
	room   *tableRoom
	peer   *wsPeer
}

// NewServer builds a configured table server, dialing the dice service when
// an address is given.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.GRPCDialTimeout <= 0 {
		config.GRPCDialTimeout = timeouts.GRPCDial
	}

	var dice Dice = diceservice.Local{Roller: roller.New(roller.Config{Budget: config.EvalTimeout})}
	var diceConn *gogrpc.ClientConn
	if strings.TrimSpace(config.DiceAddr) != "" {
		conn, err := dialDiceGRPC(ctx, config)
		if err != nil {
			return nil, err
		}
		diceConn = conn
		dice = diceservice.NewClient(conn, "")
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(dice),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		diceConn:        diceConn,
	}, nil
}

// Run creates and serves a table server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(ctx, config)
	if err != nil {
		return fmt.Errorf("init table server: %w", err)
	}
	defer server.Close()

	listener, err := net.Listen("tcp", server.httpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.httpAddr, err)
	}
	if err := server.Serve(ctx, listener); err != nil {
		return fmt.Errorf("serve table: %w", err)
	}
	return nil
}

// Serve runs the HTTP server on listener until the context ends.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s == nil {
		return errors.New("table server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("table server listening on %s", listener.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.diceConn != nil {
		if err := s.diceConn.Close(); err != nil {
			log.Printf("close dice gRPC connection: %v", err)
		}
		s.diceConn = nil
	}
}

func dialDiceGRPC(ctx context.Context, config Config) (*gogrpc.ClientConn, error) {
	diceAddr := strings.TrimSpace(config.DiceAddr)
	logf := func(format string, args ...any) {
		log.Printf("dice %s", fmt.Sprintf(format, args...))
	}
	conn, err := platformgrpc.Connect(ctx, diceAddr, config.GRPCDialTimeout, logf)
	if err != nil {
		return nil, fmt.Errorf("dial dice gRPC %s: %w", diceAddr, err)
	}
	return conn, nil
}
