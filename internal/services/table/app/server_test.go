package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	diceserver "github.com/louisbranch/dicebox/internal/services/dice/app"
)

func postRoll(t *testing.T, handler http.Handler, form url.Values, htmxRequest bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/roll", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmxRequest {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersRollerPage(t *testing.T) {
	handler := newTestHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>Dice roller | dicebox</title>", `hx-post="/roll"`, "`#`"} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestIndexPersistsLanguageParam(t *testing.T) {
	handler := newTestHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=pt-BR", nil))
	if !strings.Contains(rec.Body.String(), "Rolador de dados") {
		t.Fatalf("expected pt-BR page, got %s", rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "pt-BR" {
		t.Fatalf("cookies = %v, want language cookie", cookies)
	}
}

func TestIndexHTMXReturnsMainContent(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatalf("htmx response should not contain the document shell: %s", body)
	}
	if !strings.HasPrefix(body, "<title>Dice roller | dicebox</title><form") {
		t.Fatalf("htmx response = %s", body)
	}
}

func TestRollFragment(t *testing.T) {
	handler := newTestHandler()

	rec := postRoll(t, handler, url.Values{"expression": {"3+4"}, "seed": {"5"}}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	want := `<p class="roll"><code>3+4</code> = <output>7</output> <small class="seed">#5</small></p>`
	if got := rec.Body.String(); got != want {
		t.Fatalf("fragment = %q, want %q", got, want)
	}
}

func TestRollFragmentLocalizedError(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/roll?lang=pt-BR", strings.NewReader("expression="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "Uma expressão é obrigatória") {
		t.Fatalf("fragment = %s", rec.Body.String())
	}
}

func TestRollWithoutHTMXRendersPage(t *testing.T) {
	handler := newTestHandler()

	rec := postRoll(t, handler, url.Values{"expression": {"[1, 2] + 1"}}, false)
	body := rec.Body.String()
	if !strings.Contains(body, "<html") || !strings.Contains(body, "<output>[2, 3]</output>") {
		t.Fatalf("page = %s", body)
	}
	if !strings.Contains(body, `value="[1, 2] + 1"`) {
		t.Fatal("expected the expression to stay in the form")
	}
}

func TestRollRejectsBadSeed(t *testing.T) {
	rec := postRoll(t, newTestHandler(), url.Values{"expression": {"d6"}, "seed": {"abc"}}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealthAndMethods(t *testing.T) {
	handler := newTestHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ws", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("ws POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNewServerValidatesConfig(t *testing.T) {
	if _, err := NewServer(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing http address")
	}
	if _, err := NewServer(nil, Config{HTTPAddr: ":0"}); err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestServerServesUntilCanceled(t *testing.T) {
	t.Setenv("DICEBOX_DICE_DB_PATH", filepath.Join(t.TempDir(), "dice.db"))
	t.Setenv("DICEBOX_RECEIPT_KEY", "")
	dice, err := diceserver.NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new dice server: %v", err)
	}
	diceCtx, diceCancel := context.WithCancel(context.Background())
	diceDone := make(chan error, 1)
	go func() { diceDone <- dice.Serve(diceCtx) }()
	t.Cleanup(func() {
		diceCancel()
		<-diceDone
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server, err := NewServer(ctx, Config{HTTPAddr: "127.0.0.1:0", DiceAddr: dice.Addr()})
	if err != nil {
		t.Fatalf("new table server: %v", err)
	}
	defer server.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx, listener) }()

	form := url.Values{"expression": {"2*21"}}
	resp, err := http.Post("http://"+listener.Addr().String()+"/roll", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post roll: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "<output>42</output>") {
		t.Fatalf("remote roll page = %s", body)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
