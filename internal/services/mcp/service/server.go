package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/dicebox/internal/platform/branding"
	"github.com/louisbranch/dicebox/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/dicebox/internal/platform/grpc"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicebox/internal/services/mcp/domain"
	"github.com/louisbranch/dicebox/internal/services/shared/roller"
)

// serverVersion identifies the MCP server version.
const serverVersion = "0.1.0"

// serverName identifies this MCP server to clients.
var serverName = branding.AppName + " MCP"

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over streamable HTTP for remote clients.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	// GRPCAddr is the dice service address. Empty evaluates in process.
	GRPCAddr  string
	Transport TransportKind
	// HTTPAddr defaults to the MCP port on localhost for the HTTP transport.
	HTTPAddr    string
	Locale      string
	EvalTimeout time.Duration
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	conn      *grpc.ClientConn
}

type toolRegistration struct {
	name     string
	register func(*mcp.Server)
}

func diceTools(dice domain.Dice, locale string) []toolRegistration {
	return []toolRegistration{
		{name: "dice_roll", register: func(s *mcp.Server) {
			mcp.AddTool(s, domain.RollTool(), domain.RollHandler(dice, locale))
		}},
		{name: "dice_explain", register: func(s *mcp.Server) {
			mcp.AddTool(s, domain.ExplainTool(), domain.ExplainHandler(dice, locale))
		}},
		{name: "dice_operators", register: func(s *mcp.Server) {
			mcp.AddTool(s, domain.OperatorsTool(), domain.OperatorsHandler(dice, locale))
		}},
	}
}

// New creates a configured MCP server. With a GRPCAddr it waits for the dice
// service to report healthy; otherwise rolls run in process.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		local := diceservice.Local{Roller: roller.New(roller.Config{Budget: cfg.EvalTimeout})}
		return newServer(local, nil, cfg.Locale), nil
	}
	conn, err := dialDiceGRPC(ctx, cfg.GRPCAddr)
	if err != nil {
		return nil, err
	}
	return newServer(diceservice.NewClient(conn, cfg.Locale), conn, cfg.Locale), nil
}

func newServer(dice domain.Dice, conn *grpc.ClientConn, locale string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	for _, tool := range diceTools(dice, locale) {
		tool.register(mcpServer)
	}
	return &Server{mcpServer: mcpServer, conn: conn}
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}

	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Transport == TransportStdio {
		return server.serveWithTransport(ctx, &mcp.StdioTransport{})
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("close dice connection: %v", err)
		}
	}()

	healthCtx, healthCancel := context.WithCancel(ctx)
	defer healthCancel()
	go server.monitorHealth(healthCtx)

	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = "localhost" + discovery.ListenAddr(discovery.ServiceMCP)
	}
	return NewHTTPTransport(httpAddr, server.mcpServer).Start(ctx)
}

// serveWithTransport runs the MCP server on transport and releases the
// dice connection when it stops.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close gRPC connection: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close gRPC connection: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// monitorHealth logs when the dice service stops reporting healthy. The HTTP
// server keeps running; tool calls report their own failures.
func (s *Server) monitorHealth(ctx context.Context) {
	if s.conn == nil {
		return
	}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	client := grpc_health_v1.NewHealthClient(s.conn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			response, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: diceservice.ServiceName})
			cancel()
			if err != nil {
				log.Printf("dice health check failed: %v", err)
			} else if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				log.Printf("dice health check status: %s", response.GetStatus())
			}
		}
	}
}

// Close releases the gRPC connection held by the server.
func (s *Server) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return err
	}
	s.conn = nil
	return nil
}

func dialDiceGRPC(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logf := func(format string, args ...any) {
		log.Printf("dice %s", fmt.Sprintf(format, args...))
	}
	conn, err := platformgrpc.Connect(ctx, addr, timeouts.GRPCDial, logf)
	if err != nil {
		var connectErr *platformgrpc.ConnectError
		if errors.As(err, &connectErr) && connectErr.Stage == platformgrpc.StageClient {
			return nil, fmt.Errorf("connect to dice server at %s: %w", addr, connectErr.Err)
		}
		return nil, err
	}
	return conn, nil
}
