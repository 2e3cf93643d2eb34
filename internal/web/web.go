// Package web хранит встроенные в бинарник шаблоны и статику.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates разбирает layout и все страницы в один набор для gin.SetHTMLTemplate.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Static - файловая система для router.StaticFS("/static", ...).
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// каталог встроен при компиляции, ошибка здесь невозможна
		panic(err)
	}
	return http.FS(sub)
}

// NotFoundPage - содержимое кастомной страницы 404.
func NotFoundPage() []byte {
	content, err := staticFS.ReadFile("static/404.html")
	if err != nil {
		panic(err)
	}
	return content
}
