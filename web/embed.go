// Package web embeds the browser UI: the index template and its static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html static/*
var content embed.FS

// GetTemplatesFS returns the embedded templates filesystem
func GetTemplatesFS() fs.FS {
	templatesFS, err := fs.Sub(content, "templates")
	if err != nil {
		panic(err) // path is fixed at compile time
	}
	return templatesFS
}

// GetStaticFS returns the embedded static files filesystem
func GetStaticFS() fs.FS {
	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return staticFS
}
