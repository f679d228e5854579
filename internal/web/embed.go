// Package web embeds the static connection page so the binary ships
// self-contained.
package web

import (
	"embed"
	"io/fs"
)

//go:embed *.html
var files embed.FS

// FS provides access to the embedded pages.
var FS fs.FS = files
