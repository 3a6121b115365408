// Package web holds the embedded single-page chat interface.
package web

import "embed"

//go:embed index.html
var FS embed.FS
