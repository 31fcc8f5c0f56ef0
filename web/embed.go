// Package web provides the embedded storefront page templates.
package web

import "embed"

// Templates holds the HTML templates for the storefront pages.
//
//go:embed templates/*.html.tmpl
var Templates embed.FS
