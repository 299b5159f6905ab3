package receiptkey

import (
	"bytes"
	"encoding/base64"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/louisbranch/dicebox/internal/services/dice/receipt"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("receiptkey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != 32 {
		t.Fatalf("expected default bytes 32, got %d", cfg.Bytes)
	}
}

func TestParseConfigOverride(t *testing.T) {
	fs := flag.NewFlagSet("receiptkey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-bytes", "48"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != 48 {
		t.Fatalf("expected bytes 48, got %d", cfg.Bytes)
	}
}

func TestRunRejectsInvalidBytes(t *testing.T) {
	if err := Run(Config{Bytes: 0}, &bytes.Buffer{}, bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for non-positive bytes")
	}
}

func TestRunRejectsKeysTheSignerRefuses(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(Config{Bytes: 4}, buf, bytes.NewReader([]byte{1, 2, 3, 4})); err == nil {
		t.Fatal("expected error for a short key")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestRunWritesDecodableKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 32)
	buf := &bytes.Buffer{}
	if err := Run(Config{Bytes: 32}, buf, bytes.NewReader(raw)); err != nil {
		t.Fatalf("run: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	want := EnvName + "=" + base64.StdEncoding.EncodeToString(raw)
	if line != want {
		t.Fatalf("output = %q, want %q", line, want)
	}

	key, err := receipt.DecodeKey(strings.TrimPrefix(line, EnvName+"="))
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Fatalf("decoded key = %x, want %x", key, raw)
	}
}

func TestRunNilOutput(t *testing.T) {
	if err := Run(Config{Bytes: 32}, nil, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}

func TestRunReaderError(t *testing.T) {
	reader := io.MultiReader(bytes.NewReader([]byte{1}), errReader{})
	if err := Run(Config{Bytes: 32}, &bytes.Buffer{}, reader); err == nil {
		t.Fatal("expected read error")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}
