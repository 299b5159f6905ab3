package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/louisbranch/dicebox/internal/services/shared/i18nhttp"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	return b.String()
}

func TestPageRendersFormAndResult(t *testing.T) {
	got := render(t, Page(PageData{
		Lang:      "pt-BR",
		Labels:    Labels{Title: "Rolador de dados", Expression: "Expressão", Submit: "Rolar", Operators: "Operadores"},
		Operators: "`+`, `-`",
		Result:    &Result{Expression: "<b>4d6</b>", Display: "14", Seed: 9},
		Languages: []i18nhttp.LanguageOption{{Tag: "en-US", Label: "English"}, {Tag: "pt-BR", Label: "Português (Brasil)", Active: true}},
	}))

	for _, want := range []string{
		`<html lang="pt-BR">`,
		`<title>Rolador de dados | dicebox</title>`,
		`hx-post="/roll"`,
		`<section id="result" aria-live="polite"><p class="roll"><code>&lt;b&gt;4d6&lt;/b&gt;</code> = <output>14</output>`,
		`#9</small>`,
		`<a href="/?lang=en-US">English</a>`,
		`<span aria-current="true">Português (Brasil)</span>`,
		"`+`, `-`",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("page missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<b>4d6</b>") {
		t.Fatal("expression was not escaped")
	}
}

func TestPageWithoutResult(t *testing.T) {
	got := render(t, Page(PageData{Labels: Labels{Title: "Dice roller"}}))
	if !strings.Contains(got, `<section id="result" aria-live="polite"></section>`) {
		t.Fatalf("expected empty result region:\n%s", got)
	}
	if strings.Contains(got, "<details>") {
		t.Fatal("operators rendered without an operator list")
	}
	if !strings.Contains(got, `<html lang="en-US">`) {
		t.Fatal("expected default language")
	}
}

func TestResultFragmentError(t *testing.T) {
	got := render(t, ResultFragment(Result{Expression: "3 +", Error: "Invalid expression: unexpected end"}))
	want := `<p class="roll roll-error" role="alert"><code>3 +</code> Invalid expression: unexpected end</p>`
	if got != want {
		t.Fatalf("fragment = %q, want %q", got, want)
	}
}

func TestComposePageTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "dicebox"},
		{in: "Dice roller", want: "Dice roller | dicebox"},
		{in: "Dice roller | dicebox", want: "Dice roller | dicebox"},
	}
	for _, tt := range tests {
		if got := ComposePageTitle(tt.in); got != tt.want {
			t.Fatalf("ComposePageTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
