package export

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// bodyToHTML converts a markdown body to HTML.
func bodyToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
