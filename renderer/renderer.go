// Package renderer turns books and reports into markdown, and markdown into
// terminal or HTML output.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Terminal renders markdown for a terminal of the given width. The style
// follows the terminal background, and is plain when the output is not a
// terminal.
func Terminal(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("cannot create terminal renderer: %w", err)
	}
	return r.Render(md)
}

// HTML renders markdown, tables included, to an HTML fragment.
func HTML(md string) (string, error) {
	var b bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := conv.Convert([]byte(md), &b); err != nil {
		return "", fmt.Errorf("cannot convert markdown: %w", err)
	}
	return b.String(), nil
}

// HTMLPage wraps the HTML rendering of md in a standalone page.
func HTMLPage(title, md string) (string, error) {
	body, err := HTML(md)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n", title, body), nil
}
