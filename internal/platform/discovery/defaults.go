// Package discovery centralizes internal service-discovery conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceDice is the dice gRPC service identity.
	ServiceDice = "dice"
	// ServiceTable is the table HTTP and websocket service identity.
	ServiceTable = "table"
	// ServiceMCP is the MCP HTTP service identity.
	ServiceMCP = "mcp"
)

var grpcPorts = map[string]int{
	ServiceDice: 8082,
}

var httpPorts = map[string]int{
	ServiceTable: 8086,
	ServiceMCP:   8085,
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcPorts)
}

// ListenAddr returns the ":port" a service binds when no address is given.
func ListenAddr(service string) string {
	service = strings.TrimSpace(service)
	if port, ok := grpcPorts[service]; ok {
		return ":" + strconv.Itoa(port)
	}
	if port, ok := httpPorts[service]; ok {
		return ":" + strconv.Itoa(port)
	}
	return ""
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok || port <= 0 {
		return ""
	}
	return service + ":" + strconv.Itoa(port)
}
