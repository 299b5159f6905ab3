// Package templates renders the table HTML surfaces.
package templates

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/dicebox/internal/platform/branding"
	"github.com/louisbranch/dicebox/internal/services/shared/i18nhttp"
)

// HTMXScriptURL is the htmx build the pages load.
const HTMXScriptURL = "https://unpkg.com/htmx.org@2.0.4"

// Labels holds the localized page strings.
type Labels struct {
	Title      string
	Tagline    string
	Expression string
	Submit     string
	Operators  string
}

// Result is one roll rendered into the result region.
type Result struct {
	Expression string
	Display    string
	Error      string
	Seed       int64
}

// PageData describes the roller page.
type PageData struct {
	Lang      string
	Labels    Labels
	Operators string
	// Result is rendered below the form when set.
	Result    *Result
	Languages []i18nhttp.LanguageOption
}

// ComposePageTitle appends the app name to title.
func ComposePageTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return branding.AppName
	}
	if strings.HasSuffix(title, " | "+branding.AppName) {
		return title
	}
	return title + " | " + branding.AppName
}

// Page renders the full roller document. The form posts to /roll and, under
// htmx, swaps only the result region.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		lang := data.Lang
		if lang == "" {
			lang = "en-US"
		}
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="` + templ.EscapeString(lang) + `"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + templ.EscapeString(ComposePageTitle(data.Labels.Title)) + `</title>`)
		b.WriteString(`<script src="` + HTMXScriptURL + `"></script></head><body>`)
		b.WriteString(`<header><h1>` + templ.EscapeString(branding.AppName) + `</h1>`)
		if data.Labels.Tagline != "" {
			b.WriteString(`<p>` + templ.EscapeString(data.Labels.Tagline) + `</p>`)
		}
		if len(data.Languages) > 0 {
			b.WriteString(`<nav class="languages">`)
			for _, option := range data.Languages {
				href := i18nhttp.LanguageURL("/", "", option.Tag)
				if option.Active {
					b.WriteString(`<span aria-current="true">` + templ.EscapeString(option.Label) + `</span>`)
					continue
				}
				b.WriteString(`<a href="` + templ.EscapeString(href) + `">` + templ.EscapeString(option.Label) + `</a>`)
			}
			b.WriteString(`</nav>`)
		}
		b.WriteString(`</header><main>`)
		b.WriteString(`<form method="post" action="/roll" hx-post="/roll" hx-target="#result" hx-swap="innerHTML">`)
		b.WriteString(`<label for="expression">` + templ.EscapeString(data.Labels.Expression) + `</label>`)
		b.WriteString(`<input id="expression" name="expression" autocomplete="off" required`)
		if data.Result != nil {
			b.WriteString(` value="` + templ.EscapeString(data.Result.Expression) + `"`)
		}
		b.WriteString(`>`)
		b.WriteString(`<button type="submit">` + templ.EscapeString(data.Labels.Submit) + `</button></form>`)
		b.WriteString(`<section id="result" aria-live="polite">`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		b.Reset()
		if data.Result != nil {
			if err := ResultFragment(*data.Result).Render(ctx, w); err != nil {
				return err
			}
		}
		b.WriteString(`</section>`)
		if data.Operators != "" {
			b.WriteString(`<details><summary>` + templ.EscapeString(data.Labels.Operators) + `</summary>`)
			b.WriteString(`<p class="operators">` + templ.EscapeString(data.Operators) + `</p></details>`)
		}
		b.WriteString(`</main></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ResultFragment renders one roll outcome.
func ResultFragment(result Result) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		if result.Error != "" {
			b.WriteString(`<p class="roll roll-error" role="alert"><code>` + templ.EscapeString(result.Expression) + `</code> `)
			b.WriteString(templ.EscapeString(result.Error) + `</p>`)
		} else {
			b.WriteString(`<p class="roll"><code>` + templ.EscapeString(result.Expression) + `</code> = `)
			b.WriteString(`<output>` + templ.EscapeString(result.Display) + `</output>`)
			b.WriteString(` <small class="seed">#` + strconv.FormatInt(result.Seed, 10) + `</small></p>`)
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}
