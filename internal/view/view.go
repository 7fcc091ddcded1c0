// Package view renders the HTML pages.  Templates are embedded in the
// binary and get the sprig function map.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
)

//go:embed templates/*.html
var files embed.FS

// Page names accepted by Render.
const (
	PageHome    = "home.html"
	PageLogin   = "login.html"
	PageProfile = "profile.html"
)

// Page carries what the shared layout needs about the caller.
type Page struct {
	IsLoggedIn bool
	IsAdmin    bool
	IsOperator bool
	IsMember   bool
	Username   string
	CSRFToken  string
}

type HomeData struct {
	Page
	CurrentTime time.Time
	AdminPath   string
}

type LoginData struct {
	Page
	Error        string
	FormUsername string
}

type ProfileData struct {
	Page
	User             model.User
	MembershipStatus string
	Updated          bool
	Error            string
}

// Renderer implements echo.Renderer.  Each page is parsed together with the
// base layout into its own template set.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{PageHome, PageLogin, PageProfile} {
		t, err := template.New(name).Funcs(sprig.FuncMap()).ParseFS(files, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the layout for page name.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}
