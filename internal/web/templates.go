package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
	webembed "github.com/erazemk/findit/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleName":     model.RoleName,
		"ago":          view.RelativeTime,
		"actionLabel":  view.ActionLabel,
		"indicator":    view.StatusIndicator,
		"counterpart":  func(r model.Request, own bool) *model.User { return view.Counterpart(&r, own) },
		"actions":      view.RequestActions,
		"requestDate":  func(t time.Time) string { return view.FormatDate(t, time.Now()) },
		"lower":        strings.ToLower,
		"add":          func(a, b int) int { return a + b },
		"answerFor":    func(a model.Answers, i int) string { return a.For(i) },
		"itemDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Local().Format("2 Jan 2006, 15:04")
		},
	}
}

// pages lists every page template; each is parsed together with the layout
// and the shared partials.
var pages = []string{
	"login.html",
	"signup.html",
	"feed.html",
	"requests.html",
	"search.html",
	"reports.html",
	"admin.html",
	"error.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}
	cardsBytes, err := fs.ReadFile(tfs, "cards.html")
	if err != nil {
		return nil, fmt.Errorf("reading cards template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		for _, src := range []struct {
			name string
			body []byte
		}{
			{"layout.html", layoutBytes},
			{"cards.html", cardsBytes},
			{page, pageBytes},
		} {
			if tmpl, err = tmpl.Parse(string(src.body)); err != nil {
				return nil, fmt.Errorf("parsing %s for %s: %w", src.name, page, err)
			}
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title  string
	User   *model.User
	Nav    []view.Link
	Path   string
	Notice string
	Alert  string
}

// page builds the base page data for the current request.
func page(r *http.Request, title string) PageData {
	pd := PageData{
		Title:  title,
		Path:   r.URL.Path,
		Notice: r.URL.Query().Get("notice"),
		Alert:  r.URL.Query().Get("alert"),
	}
	if u := CurrentUser(r.Context()); u != nil {
		pd.User = u
		pd.Nav = view.NavLinks(u.Role)
	}
	return pd
}
