// Package static embeds the stylesheet and the contact form script.
package static

import "embed"

//go:embed css js
var Files embed.FS
