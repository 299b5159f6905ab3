package htmx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func text(body string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func failing() templ.Component {
	return templ.ComponentFunc(func(context.Context, io.Writer) error {
		return errors.New("render failed")
	})
}

func htmxRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestHeader, "true")
	return req
}

func TestIsRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "missing", want: false},
		{name: "true", header: "true", want: true},
		{name: "mixed case", header: "TRUE", want: true},
		{name: "false", header: "false", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestHeader, tt.header)
			}
			if got := IsRequest(req); got != tt.want {
				t.Fatalf("IsRequest() = %v, want %v", got, tt.want)
			}
		})
	}
	if IsRequest(nil) {
		t.Fatal("IsRequest(nil) = true, want false")
	}
}

func TestTitleTag(t *testing.T) {
	if got := TitleTag("  "); got != "" {
		t.Fatalf("TitleTag(blank) = %q, want empty", got)
	}
	if got := TitleTag("Dice <roller>"); got != "<title>Dice &lt;roller&gt;</title>" {
		t.Fatalf("TitleTag() = %q", got)
	}
}

func TestRenderFullPageForPlainRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), Page{
		Full:     text("<html><main>roll</main></html>"),
		Fragment: text("fragment"),
		Title:    "Dice",
	})

	if got := rec.Body.String(); got != "<html><main>roll</main></html>" {
		t.Fatalf("body = %q", got)
	}
	if got := rec.Header().Get("Vary"); got != RequestHeader {
		t.Fatalf("Vary = %q, want %q", got, RequestHeader)
	}
}

func TestRenderFallsBackToFragmentForPlainRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), Page{Fragment: text("fragment")})
	if got := rec.Body.String(); got != "fragment" {
		t.Fatalf("body = %q, want fragment", got)
	}
}

func TestRenderFragmentForHTMXRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, htmxRequest(), Page{
		Full:     text("<html><main>roll</main></html>"),
		Fragment: text("<p>7</p>"),
		Title:    "Dice",
	})
	if got := rec.Body.String(); got != "<p>7</p>" {
		t.Fatalf("body = %q, want fragment only", got)
	}
}

func TestRenderExtractsMainWithTitle(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, htmxRequest(), Page{
		Full:  text(`<html><head><title>x</title></head><body><main id="app"><form></form></main></body></html>`),
		Title: "Dice roller",
	})
	if got := rec.Body.String(); got != "<title>Dice roller</title><form></form>" {
		t.Fatalf("body = %q", got)
	}
}

func TestRenderKeepsFragmentTitle(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, htmxRequest(), Page{
		Full:  text("<main><title>own</title><p>x</p></main>"),
		Title: "ignored",
	})
	if got := rec.Body.String(); got != "<title>own</title><p>x</p>" {
		t.Fatalf("body = %q", got)
	}
}

func TestRenderWithoutMainReturnsWholeBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, htmxRequest(), Page{Full: text("<p>plain</p>"), Title: "Dice"})
	if got := rec.Body.String(); got != "<p>plain</p>" {
		t.Fatalf("body = %q", got)
	}
}

func TestRenderCopiesHeadersFromCapturedPage(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, htmxRequest(), Page{Full: text("<main>ok</main>")})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", got)
	}
}

func TestRenderCopiesFailureStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, htmxRequest(), Page{Full: failing()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestCopyHeadersAccumulatesCookies(t *testing.T) {
	dst := http.Header{}
	dst.Set("Content-Type", "text/plain")
	src := http.Header{}
	src.Add("Set-Cookie", "a=1")
	src.Add("Set-Cookie", "b=2")
	src.Set("Content-Type", "text/html")

	copyHeaders(dst, src)
	if got := dst.Values("Set-Cookie"); strings.Join(got, ";") != "a=1;b=2" {
		t.Fatalf("Set-Cookie = %v", got)
	}
	if got := dst.Values("Content-Type"); len(got) != 1 || got[0] != "text/html" {
		t.Fatalf("Content-Type = %v", got)
	}
}
