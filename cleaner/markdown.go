package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minArticleLength is the minimum extracted text length for readability
// output to count as the main content; below it the full body is converted
// instead.
const minArticleLength = 50

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: preserves table structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown extracts the main article from the page and converts it to
// Markdown, resolving relative URLs against the final URL. When readability
// cannot locate an article, the full body is converted instead.
func (c *Cleaner) ToMarkdown(content, finalURL string) (string, error) {
	source := content
	if article, ok := extractArticle(content, finalURL); ok {
		source = article
	}
	return c.conv.ConvertString(source, converter.WithDomain(finalURL))
}

// extractArticle runs the readability algorithm; the bool reports whether
// its output is trustworthy.
func extractArticle(content, sourceURL string) (string, bool) {
	parsed, err := nurl.Parse(sourceURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(content), parsed)
	if err != nil {
		slog.Debug("readability extraction failed, converting full body",
			"url", sourceURL, "error", err)
		return "", false
	}
	if len(strings.TrimSpace(article.TextContent)) < minArticleLength {
		return "", false
	}
	return article.Content, true
}
