// Package views holds the embedded page templates and the gin renderer
// that serves them.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates
var files embed.FS

const (
	rootName   = "root"
	layoutName = "layout"
)

// Renderer is a gin HTMLRender with one template set per page, each page
// parsed on top of the shared layout and partials.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// New parses every page under templates/. Files starting with "_" are
// partials and shared by all pages. The layout comes from the
// {{define "layout"}} block in _layout.html.
func New() (*Renderer, error) {
	base := template.New(rootName).Funcs(Funcs())
	var pages []string
	err := fs.WalkDir(files, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return err
		}
		if strings.HasPrefix(path.Base(p), "_") {
			b, err := files.ReadFile(p)
			if err != nil {
				return err
			}
			if _, err := base.New(p).Parse(string(b)); err != nil {
				return fmt.Errorf("parse %s: %w", p, err)
			}
			return nil
		}
		pages = append(pages, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		b, err := files.ReadFile(p)
		if err != nil {
			return nil, err
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.New(p).Parse(string(b)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		if t.Lookup(layoutName) == nil || t.Lookup("content") == nil {
			return nil, fmt.Errorf("page %s: missing layout or content block", p)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		r.pages[name] = t
	}
	return r, nil
}

// Instance implements render.HTMLRender. Unknown pages panic inside gin's
// recovery, which is what a missing template deserves.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		panic(fmt.Sprintf("views: no page %q", name))
	}
	return render.HTML{Template: t, Name: layoutName, Data: data}
}

// Has reports whether a page exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
