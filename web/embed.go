package web

import (
	"embed"
	"io/fs"
)

// Templates embeds the page, layout and partial templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

//go:embed static/**/*
var static embed.FS

// StaticFS returns the assets rooted at static/, ready for http.FileServer.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
