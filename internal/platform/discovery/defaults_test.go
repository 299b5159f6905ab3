package discovery

import "testing"

func TestDefaultGRPCAddr(t *testing.T) {
	cases := map[string]string{
		ServiceDice:    "dice:8082",
		" dice ":       "dice:8082",
		ServiceTable:   "",
		"unknown-peer": "",
	}
	for service, want := range cases {
		if got := DefaultGRPCAddr(service); got != want {
			t.Fatalf("DefaultGRPCAddr(%q) = %q, want %q", service, got, want)
		}
	}
}

func TestListenAddr(t *testing.T) {
	cases := map[string]string{
		ServiceDice:  ":8082",
		ServiceTable: ":8086",
		ServiceMCP:   ":8085",
		"nope":       "",
	}
	for service, want := range cases {
		if got := ListenAddr(service); got != want {
			t.Fatalf("ListenAddr(%q) = %q, want %q", service, got, want)
		}
	}
}
