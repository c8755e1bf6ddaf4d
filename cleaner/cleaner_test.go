package cleaner

import (
	"strings"
	"testing"

	"github.com/use-agent/gofetch/models"
)

const articleHTML = `<html><head><title>Testing</title><style>body { color: red }</style></head>
<body>
<script>console.log("tracking")</script>
<article>
<h1>A Heading</h1>
<p>The first paragraph carries a healthy amount of text so extraction treats it as real content.</p>
<p>The second paragraph links to <a href="/relative">a relative page</a> for good measure.</p>
</article>
<noscript>enable javascript</noscript>
</body></html>`

func TestStripHTML(t *testing.T) {
	out, err := StripHTML(articleHTML)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}

	for _, gone := range []string{"<script", "<style", "<noscript"} {
		if strings.Contains(out, gone) {
			t.Errorf("stripped output still contains %s", gone)
		}
	}
	for _, kept := range []string{"<h1>", "first paragraph", "<article>"} {
		if !strings.Contains(out, kept) {
			t.Errorf("stripped output lost %s", kept)
		}
	}
}

func TestStripHTML_RemovesStylesheetLinks(t *testing.T) {
	html := `<html><head><link rel="stylesheet" href="/a.css"><link rel="canonical" href="/page"></head><body><p>hi</p></body></html>`
	out, err := StripHTML(html)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if strings.Contains(out, "a.css") {
		t.Error("stylesheet link survived")
	}
	if !strings.Contains(out, "canonical") {
		t.Error("non-stylesheet link should survive")
	}
}

func TestToMarkdown(t *testing.T) {
	c := New()
	md, err := c.ToMarkdown(articleHTML, "https://example.com/post")
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}

	if !strings.Contains(md, "# A Heading") && !strings.Contains(md, "A Heading") {
		t.Errorf("heading missing from markdown:\n%s", md)
	}
	if strings.Contains(md, "console.log") {
		t.Error("script content leaked into markdown")
	}
	if !strings.Contains(md, "https://example.com/relative") {
		t.Errorf("relative link not resolved against the final URL:\n%s", md)
	}
}

func TestToMarkdown_FallsBackWithoutArticle(t *testing.T) {
	c := New()
	html := `<html><body><p>tiny</p></body></html>`
	md, err := c.ToMarkdown(html, "https://example.com/")
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(md, "tiny") {
		t.Errorf("full-body fallback lost the content: %q", md)
	}
}

func TestRender_HTMLPassthrough(t *testing.T) {
	c := New()
	html, md, err := c.Render(articleHTML, "https://example.com/", models.FormatHTML, models.ResponseTypeText)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != articleHTML {
		t.Error("html format must return the content unmodified")
	}
	if md != "" {
		t.Error("html format must not produce markdown")
	}
}

func TestRender_Stripped(t *testing.T) {
	c := New()
	html, _, err := c.Render(articleHTML, "https://example.com/", models.FormatHTMLStripped, models.ResponseTypeText)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script") {
		t.Error("stripped format retained scripts")
	}
}

func TestRender_MarkdownKeepsHTML(t *testing.T) {
	c := New()
	html, md, err := c.Render(articleHTML, "https://example.com/post", models.FormatMarkdown, models.ResponseTypeText)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != articleHTML {
		t.Error("markdown format must still return the original html")
	}
	if md == "" {
		t.Error("markdown format produced no markdown")
	}
}

func TestRender_Base64Passthrough(t *testing.T) {
	c := New()
	payload := "aGVsbG8="
	html, md, err := c.Render(payload, "https://example.com/x.png", models.FormatMarkdown, models.ResponseTypeBase64)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != payload || md != "" {
		t.Errorf("base64 payload must pass through untouched: html=%q md=%q", html, md)
	}
}
