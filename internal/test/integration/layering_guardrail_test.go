//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/louisbranch/dicebox"

// TestEngineImportsOnlyStandardLibrary keeps the evaluator free of service,
// storage and transport code so every front end shares one engine.
func TestEngineImportsOnlyStandardLibrary(t *testing.T) {
	pkgs := loadPackages(t, "./internal/dice/...", "./internal/random")

	allowed := []string{
		modulePath + "/internal/dice",
		modulePath + "/internal/random",
	}
	var violations []string
	for _, pkg := range pkgs {
		for path := range pkg.Imports {
			if isStandardLibrary(path) || hasAnyPrefix(path, allowed) {
				continue
			}
			violations = append(violations, pkg.PkgPath+" imports "+path)
		}
	}
	reportViolations(t, violations)
}

// TestServicesDoNotImportEachOther allows a service to reach another only
// through the dice client package and the shared helpers.
func TestServicesDoNotImportEachOther(t *testing.T) {
	pkgs := loadPackages(t, "./internal/services/...")

	servicesRoot := modulePath + "/internal/services/"
	allowed := []string{
		servicesRoot + "dice/api/grpc/dice",
		servicesRoot + "shared/",
	}
	var violations []string
	for _, pkg := range pkgs {
		owner := serviceName(pkg.PkgPath, servicesRoot)
		if owner == "" || owner == "shared" {
			continue
		}
		for path := range pkg.Imports {
			target := serviceName(path, servicesRoot)
			if target == "" || target == owner || hasAnyPrefix(path, allowed) {
				continue
			}
			violations = append(violations, pkg.PkgPath+" imports "+path)
		}
	}
	reportViolations(t, violations)
}

func loadPackages(t *testing.T, patterns ...string) []*packages.Package {
	t.Helper()
	config := &packages.Config{
		Mode:  packages.NeedName | packages.NeedImports,
		Tests: false,
		Dir:   integrationRepoRoot(t),
	}
	pkgs, err := packages.Load(config, patterns...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("package load errors")
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages match %v", patterns)
	}
	return pkgs
}

func serviceName(path, root string) string {
	rest, ok := strings.CutPrefix(path, root)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// isStandardLibrary reports whether path has no domain in its first element.
func isStandardLibrary(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

func reportViolations(t *testing.T, violations []string) {
	t.Helper()
	if len(violations) == 0 {
		return
	}
	slices.Sort(violations)
	t.Fatalf("import violations:\n%s", strings.Join(violations, "\n"))
}

func integrationRepoRoot(t *testing.T) string {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			t.Fatal("go.mod not found")
		}
		wd = parent
	}
}
