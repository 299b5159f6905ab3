package server

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicebox/internal/services/shared/htmx"
	"github.com/louisbranch/dicebox/internal/services/shared/i18nhttp"
	"github.com/louisbranch/dicebox/internal/services/table/templates"
)

// maxFormBytes bounds the roller form body.
const maxFormBytes = 4 * 1024

type pageHandler struct {
	dice Dice
}

func (h pageHandler) index(w http.ResponseWriter, r *http.Request) {
	tag := resolveLanguage(w, r)
	data := h.pageData(r, tag)
	htmx.Render(w, r, htmx.Page{
		Full:  templates.Page(data),
		Title: templates.ComposePageTitle(data.Labels.Title),
	})
}

// roll evaluates the form expression. htmx requests get only the result
// fragment; plain form posts get the whole page with the result filled in.
func (h pageHandler) roll(w http.ResponseWriter, r *http.Request) {
	tag := resolveLanguage(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := diceservice.EvaluateRequest{Expression: strings.TrimSpace(r.PostForm.Get("expression"))}
	if rawSeed := strings.TrimSpace(r.PostForm.Get("seed")); rawSeed != "" {
		seed, err := strconv.ParseInt(rawSeed, 10, 64)
		if err != nil {
			http.Error(w, "invalid seed", http.StatusBadRequest)
			return
		}
		req.Seed = seed
		req.HasSeed = true
	}

	result := templates.Result{Expression: req.Expression}
	roll, err := h.dice.Evaluate(r.Context(), req)
	if err != nil {
		result.Error = apperrors.MessageFor(err, tag.String())
	} else {
		result.Display = roll.Display
		result.Seed = roll.Seed
	}

	if htmx.IsRequest(r) {
		htmx.Render(w, r, htmx.Page{Fragment: templates.ResultFragment(result)})
		return
	}
	data := h.pageData(r, tag)
	data.Result = &result
	htmx.Render(w, r, htmx.Page{Full: templates.Page(data)})
}

func (h pageHandler) pageData(r *http.Request, tag language.Tag) templates.PageData {
	printer := i18nhttp.Printer(tag)
	data := templates.PageData{
		Lang: tag.String(),
		Labels: templates.Labels{
			Title:      printer.Sprintf("dice.page.title"),
			Tagline:    printer.Sprintf("core.app.tagline"),
			Expression: printer.Sprintf("dice.page.expression"),
			Submit:     printer.Sprintf("dice.page.submit"),
			Operators:  printer.Sprintf("dice.page.operators"),
		},
		Languages: i18nhttp.BuildLanguageOptions(i18nhttp.Supported(), tag.String(), func(option language.Tag) string {
			return printer.Sprintf(i18nhttp.LanguageKeyLabel(option))
		}),
	}
	if ops, err := h.dice.ListOperators(r.Context()); err == nil {
		data.Operators = ops
	}
	return data
}

func resolveLanguage(w http.ResponseWriter, r *http.Request) language.Tag {
	tag, persist := i18nhttp.ResolveTag(r)
	if persist {
		i18nhttp.SetLanguageCookie(w, tag)
	}
	return tag
}
