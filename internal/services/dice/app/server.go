// Package server wires the dice runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/dicebox/internal/platform/config"
	"github.com/louisbranch/dicebox/internal/platform/discovery"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicebox/internal/services/dice/receipt"
	"github.com/louisbranch/dicebox/internal/services/dice/storage"
	"github.com/louisbranch/dicebox/internal/services/dice/storage/sqlite"
	"github.com/louisbranch/dicebox/internal/services/shared/roller"
)

type serverEnv struct {
	DBPath      string        `env:"DICEBOX_DICE_DB_PATH"`
	History     bool          `env:"DICEBOX_DICE_HISTORY" envDefault:"true"`
	ReceiptKey  string        `env:"DICEBOX_RECEIPT_KEY"`
	EvalTimeout time.Duration `env:"DICEBOX_EVAL_TIMEOUT"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "dice.db")
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = timeouts.EvalBudget
	}
	return cfg, nil
}

// Server hosts the dice gRPC API and roll history lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *sqlite.Store
}

// New creates a configured dice server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured dice server for the provided address.
// An empty address listens on the conventional dice port.
func NewWithAddr(addr string) (*Server, error) {
	if strings.TrimSpace(addr) == "" {
		addr = discovery.ListenAddr(discovery.ServiceDice)
	}
	env, err := loadServerEnv()
	if err != nil {
		return nil, err
	}
	signer, err := openSigner(env.ReceiptKey)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	var (
		store *sqlite.Store
		rolls storage.RollStore
	)
	if env.History {
		store, err = openRollStore(env.DBPath)
		if err != nil {
			_ = listener.Close()
			return nil, err
		}
		rolls = store
	}

	rollService := roller.New(roller.Config{Budget: env.EvalTimeout, Store: rolls, Signer: signer})
	apiService := diceservice.NewService(rollService, rolls)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	diceservice.RegisterDiceServer(grpcServer, apiService)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(diceservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a dice server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves a dice server on addr until context
// cancellation.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("dice server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

// Close releases dice server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close dice store: %v", err)
		}
	}
}

func openSigner(encoded string) (*receipt.Signer, error) {
	if strings.TrimSpace(encoded) == "" {
		log.Printf("dice: DICEBOX_RECEIPT_KEY is empty, receipts are disabled")
		return nil, nil
	}
	key, err := receipt.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode receipt key: %w", err)
	}
	signer, err := receipt.NewSigner(key, nil)
	if err != nil {
		return nil, fmt.Errorf("receipt signer: %w", err)
	}
	return signer, nil
}

func openRollStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dice sqlite store: %w", err)
	}
	return store, nil
}
