package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/Masterminds/sprig/v3"
	"github.com/hakim/vulntriage/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"dashboard", "reports", "detail"}

// parseTemplates builds one template set per page, each sharing the layout.
func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(funcMap()).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func funcMap() template.FuncMap {
	fm := sprig.FuncMap()
	fm["count"] = view.FormatCount
	fm["pct"] = func(f float64) string { return fmt.Sprintf("%.1f%%", f) }
	fm["num"] = func(f float64) string { return fmt.Sprintf("%.2f", f) }
	return fm
}

// pageData is what the layout renders.
type pageData struct {
	Title    string
	Nav      string
	Path     string
	NoticeMS int64
	Page     any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, page any) {
	t, ok := s.pages[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown page %q", name))
		return
	}

	var buf bytes.Buffer
	data := pageData{Title: title, Nav: name, Path: r.URL.Path, NoticeMS: s.noticeMS, Page: page}
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.serverError(w, r, fmt.Errorf("rendering %s: %w", name, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
