package domain

import "github.com/louisbranch/dicebox/internal/platform/timeouts"

// callTimeout caps the time for a single dice call from an MCP tool handler.
const callTimeout = timeouts.GRPCRequest
