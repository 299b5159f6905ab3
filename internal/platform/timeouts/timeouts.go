// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// EvalBudget caps the wall-clock time of one dice evaluation. Evaluations
// still running at the deadline are abandoned and reported as halted.
const EvalBudget = 50 * time.Millisecond

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single gRPC request to the dice
// service.
const GRPCRequest = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// WebSocketWrite limits how long a table room waits on one slow peer.
const WebSocketWrite = 10 * time.Second
