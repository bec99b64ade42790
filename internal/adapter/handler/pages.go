package handler

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed web
var embeddedWeb embed.FS

const (
	loginPage     = "login.html"
	dashboardPage = "dashboard.html"
)

// Pages serves the login and dashboard HTML from fsys.
type Pages struct {
	fsys fs.FS
}

// NewPages serves from dir when it is set, otherwise from the copies built
// into the binary.
func NewPages(dir string) *Pages {
	if dir != "" {
		return &Pages{fsys: os.DirFS(dir)}
	}
	sub, _ := fs.Sub(embeddedWeb, "web")
	return &Pages{fsys: sub}
}

func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, loginPage)
}

func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, dashboardPage)
}

func (p *Pages) serve(w http.ResponseWriter, r *http.Request, name string) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
