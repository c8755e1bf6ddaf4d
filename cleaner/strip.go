package cleaner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// stripSelector matches the elements removed in html-stripped mode: code,
// styling and embedded media carry no content for downstream consumers.
var stripSelector = cascadia.MustCompile("script, style, noscript, iframe, svg, link[rel=stylesheet]")

// StripHTML removes non-content elements and returns the cleaned document.
func StripHTML(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.FindMatcher(stripSelector).Remove()

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize html: %w", err)
	}
	return out, nil
}
