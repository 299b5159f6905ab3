package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestConnectServing(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Connect(ctx, addr, time.Second, t.Logf)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close conn: %v", err)
	}
}

func TestConnectReportsHealthStage(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	start := time.Now()
	conn, err := Connect(context.Background(), addr, 200*time.Millisecond, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected error")
	}
	var connectErr *ConnectError
	if !errors.As(err, &connectErr) {
		t.Fatalf("error = %T, want *ConnectError", err)
	}
	if connectErr.Stage != StageHealth {
		t.Fatalf("stage = %q, want %q", connectErr.Stage, StageHealth)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("expected timeout to bound the wait, took %v", elapsed)
	}
}

func TestWaitServingTransitions(t *testing.T) {
	addr, setStatus := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	conn, err := gogrpc.NewClient(addr, ClientOptions()...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer conn.Close()

	go func() {
		time.Sleep(150 * time.Millisecond)
		setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := WaitServing(ctx, conn, "", nil); err != nil {
		t.Fatalf("wait serving: %v", err)
	}
}

func TestWaitServingRequiresConnection(t *testing.T) {
	if err := WaitServing(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestConnectErrorFormatting(t *testing.T) {
	err := &ConnectError{Stage: StageHealth, Addr: "dice:8082", Err: errors.New("boom")}
	if got := err.Error(); !strings.Contains(got, "health") || !strings.Contains(got, "dice:8082") {
		t.Fatalf("Error() = %q", got)
	}
}

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) (string, func(grpc_health_v1.HealthCheckResponse_ServingStatus)) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	server := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", status)

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	return listener.Addr().String(), func(next grpc_health_v1.HealthCheckResponse_ServingStatus) {
		healthServer.SetServingStatus("", next)
	}
}
