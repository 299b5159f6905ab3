// Package main prints translation coverage for the embedded catalogs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/louisbranch/dicebox/internal/platform/config"
	i18ncatalog "github.com/louisbranch/dicebox/internal/platform/i18n/catalog"
	"github.com/louisbranch/dicebox/internal/tools/i18nstatus"
)

func main() {
	baseLocale := flag.String("base-locale", i18ncatalog.BaseLocale, "base locale used as translation source of truth")
	asJSON := flag.Bool("json", false, "print JSON instead of markdown")
	check := flag.Bool("check", false, "exit non-zero when a locale misses keys")
	flag.Parse()

	bundle, err := i18ncatalog.LoadEmbedded()
	if err != nil {
		config.Exitf("load i18n catalogs: %v", err)
	}
	rep, err := i18nstatus.Build(bundle, *baseLocale)
	if err != nil {
		config.Exitf("build report: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	} else {
		err = i18nstatus.WriteMarkdown(os.Stdout, rep)
	}
	if err != nil {
		config.Exitf("write report: %v", err)
	}
	if incomplete := rep.Incomplete(); *check && len(incomplete) > 0 {
		fmt.Fprintf(os.Stderr, "incomplete locales: %s\n", strings.Join(incomplete, ", "))
		os.Exit(1)
	}
}
