// Package cleaner turns fetched HTML into the representation the caller
// asked for: raw HTML, stripped HTML, or Markdown.
package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/gofetch/models"
)

// Cleaner holds the reusable, goroutine-safe conversion machinery.
type Cleaner struct {
	conv *converter.Converter
}

// New creates a Cleaner.
func New() *Cleaner {
	return &Cleaner{conv: newMarkdownConverter()}
}

// Render applies the requested format to the fetched content. Base64 payloads
// pass through untouched regardless of format.
func (c *Cleaner) Render(content, finalURL, format, responseType string) (html string, markdown string, err error) {
	if responseType == models.ResponseTypeBase64 {
		return content, "", nil
	}

	switch format {
	case models.FormatHTMLStripped:
		stripped, err := StripHTML(content)
		if err != nil {
			return "", "", err
		}
		return stripped, "", nil

	case models.FormatMarkdown:
		md, err := c.ToMarkdown(content, finalURL)
		if err != nil {
			return "", "", err
		}
		return content, md, nil

	default:
		return content, "", nil
	}
}
