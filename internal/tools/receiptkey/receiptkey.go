// Package receiptkey generates signing keys for roll receipts.
package receiptkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/louisbranch/dicebox/internal/services/dice/receipt"
)

// EnvName is the variable the dice service reads its receipt key from.
const EnvName = "DICEBOX_RECEIPT_KEY"

// Config holds configuration for key generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates a key and writes it to out as an env assignment. The key is
// checked against the signer before it is printed.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf)
	key, err := receipt.DecodeKey(encoded)
	if err != nil {
		return err
	}
	if _, err := receipt.NewSigner(key, nil); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s=%s\n", EnvName, encoded)
	return err
}
