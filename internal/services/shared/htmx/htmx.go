// Package htmx renders templ components for both full page loads and htmx
// swaps from a single handler.
package htmx

import (
	"bytes"
	"html"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// RequestHeader is set to "true" by htmx on every request it issues.
const RequestHeader = "HX-Request"

// Page is one renderable response.
type Page struct {
	// Full is the whole document served to plain requests.
	Full templ.Component
	// Fragment is served to htmx requests. When nil, htmx requests get the
	// contents of the <main> element of Full.
	Fragment templ.Component
	// Title is prepended as a <title> element to fragments cut from Full so
	// htmx can update the document title.
	Title string
}

// IsRequest reports whether the request was initiated by htmx.
func IsRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(RequestHeader), "true")
}

// TitleTag formats an escaped <title> element. Blank titles give "".
func TitleTag(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return "<title>" + html.EscapeString(title) + "</title>"
}

// Render writes page for r. Responses vary on the htmx header so shared
// caches keep full and partial bodies apart.
func Render(w http.ResponseWriter, r *http.Request, page Page) {
	w.Header().Add("Vary", RequestHeader)

	if !IsRequest(r) {
		target := page.Full
		if target == nil {
			target = page.Fragment
		}
		if target != nil {
			templ.Handler(target).ServeHTTP(w, r)
		}
		return
	}

	if page.Fragment != nil {
		templ.Handler(page.Fragment).ServeHTTP(w, r)
		return
	}
	if page.Full == nil {
		return
	}

	capture := newRecorder()
	templ.Handler(page.Full).ServeHTTP(capture, r)
	body := capture.body.Bytes()
	if content, ok := mainContent(body); ok {
		body = withTitle(content, page.Title)
	}
	copyHeaders(w.Header(), capture.header)
	if capture.status != http.StatusOK {
		w.WriteHeader(capture.status)
	}
	_, _ = w.Write(body)
}

// recorder captures a rendered component before it is trimmed.
type recorder struct {
	header http.Header
	status int
	wrote  bool
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.wrote = true
	r.status = status
}

func (r *recorder) Write(body []byte) (int, error) {
	return r.body.Write(body)
}

func withTitle(body []byte, title string) []byte {
	tag := TitleTag(title)
	if tag == "" || bytes.Contains(bytes.ToLower(body), []byte("<title")) {
		return body
	}
	return append([]byte(tag), body...)
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if strings.EqualFold(key, "Set-Cookie") || strings.EqualFold(key, "Vary") {
			for _, value := range values {
				dst.Add(key, value)
			}
			continue
		}
		// single-valued: overwrite instead of accumulating duplicates
		for _, value := range values {
			dst.Set(key, value)
		}
	}
}

func mainContent(body []byte) ([]byte, bool) {
	start := bytes.Index(body, []byte("<main"))
	if start < 0 {
		return nil, false
	}
	openClose := bytes.IndexByte(body[start:], '>')
	if openClose < 0 {
		return nil, false
	}
	contentStart := start + openClose + 1
	end := bytes.Index(body[contentStart:], []byte("</main>"))
	if end < 0 {
		return nil, false
	}
	return body[contentStart : contentStart+end], true
}
