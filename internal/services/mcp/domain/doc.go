// Package domain translates MCP tool calls into dice evaluations.
//
// Each tool has a definition and a handler. Handlers call a Dice backend,
// which is either the remote dice service client or an in-process roller, and surface
// structured outputs that MCP clients can render.
package domain
