package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
)

//go:embed templates
var templatesFS embed.FS

var pages = map[string]*template.Template{}

func init() {
	names := []string{
		"portfolio.html", "log.html", "summary.html", "overview.html",
		"edit.html", "config.html", "scheduler.html",
		"buy.html", "sell.html", "paper.html", "status.html", "login.html",
	}
	for _, name := range names {
		pages[name] = template.Must(template.ParseFS(
			templatesFS, "templates/layout.html", "templates/"+name))
	}
}

func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	tmpl, ok := pages[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
