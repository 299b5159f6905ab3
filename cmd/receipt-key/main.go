// Package main prints a fresh DICEBOX_RECEIPT_KEY for the dice service.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/dicebox/internal/platform/config"
	"github.com/louisbranch/dicebox/internal/tools/receiptkey"
)

func main() {
	cfg, err := receiptkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := receiptkey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate key: %v", err)
	}
}
