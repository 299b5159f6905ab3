// Package grpc holds client helpers for reaching dicebox gRPC services.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Stage names the step of Connect that failed.
type Stage string

const (
	// StageClient means the client could not be created for the address.
	StageClient Stage = "client"
	// StageHealth means the server never reported SERVING.
	StageHealth Stage = "health"
)

// ConnectError reports which Connect stage failed for an address.
type ConnectError struct {
	Stage Stage
	Addr  string
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("gRPC %s %s: %v", e.Stage, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ClientOptions returns the dial options used by dicebox clients: plaintext
// transport plus OTel stats so outbound calls carry trace context.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Connect creates a client for addr and waits until its health service
// reports SERVING. A positive timeout bounds the wait. Extra options are
// appended to ClientOptions.
func Connect(ctx context.Context, addr string, timeout time.Duration, logf func(string, ...any), opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := gogrpc.NewClient(addr, append(ClientOptions(), opts...)...)
	if err != nil {
		return nil, &ConnectError{Stage: StageClient, Addr: addr, Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := WaitServing(ctx, conn, "", logf); err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Stage: StageHealth, Addr: addr, Err: err}
	}
	return conn, nil
}

const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = time.Second
)

// WaitServing polls the health service for service until it reports SERVING
// or ctx ends.
func WaitServing(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := minBackoff
	for {
		callCtx, cancel := context.WithTimeout(ctx, maxBackoff)
		resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		switch {
		case err != nil:
			logf("waiting for gRPC health: %v", err)
		case resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING:
			return nil
		default:
			logf("waiting for gRPC health: status %s", resp.GetStatus())
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
