package engine

import (
	"strings"
	"testing"
)

func TestSufficient_BlockStatuses(t *testing.T) {
	body := strings.Repeat("<p>plenty of real page content here</p>", 200)
	for _, code := range []int{403, 429, 503} {
		if Sufficient(body, code) {
			t.Errorf("status %d should never be sufficient", code)
		}
	}
}

func TestSufficient_AcceptsNonBlockErrorStatuses(t *testing.T) {
	body := strings.Repeat("<p>a page that happens to say not found</p>", 200)
	for _, code := range []int{200, 301, 404, 500} {
		if !Sufficient(body, code) {
			t.Errorf("status %d with real content should be sufficient", code)
		}
	}
}

func TestSufficient_TinyBody(t *testing.T) {
	if Sufficient("<html><body>hi</body></html>", 200) {
		t.Error("sub-500-byte body should be insufficient")
	}
}

func TestSufficient_EmptySPAShell(t *testing.T) {
	shells := []struct {
		name string
		html string
	}{
		{"react root", `<html><body><div id="root"></div></body></html>`},
		{"vue app", `<html><body><div id="app"> </div></body></html>`},
		{"next", `<html><body><div id="__next"></div></body></html>`},
		{"nuxt", `<html><body><div id="__nuxt"></div></body></html>`},
	}

	for _, tt := range shells {
		t.Run(tt.name, func(t *testing.T) {
			// Pad past the 500-byte floor but stay under the shell threshold.
			html := tt.html + "<!--" + strings.Repeat("x", 600) + "-->"
			if Sufficient(html, 200) {
				t.Error("small empty shell should be insufficient")
			}
		})
	}
}

func TestSufficient_NoscriptWall(t *testing.T) {
	// A mid-sized page whose body opens with <noscript> and carries no real
	// text. Pad to ~3KB so the small-shell rule alone would not catch it.
	html := `<html><head><title>x</title></head><body><noscript>Please enable JavaScript</noscript>` +
		`<div id="root"></div><script src="/bundle.js"></script>` +
		"<!--" + strings.Repeat("pad ", 700) + "--></body></html>"

	if len(html) < 2000 || len(html) >= 5000 {
		t.Fatalf("fixture size %d outside the intended 2000-5000 range", len(html))
	}
	if Sufficient(html, 200) {
		t.Error("noscript wall without text should be insufficient")
	}
}

func TestSufficient_TextBearingElements(t *testing.T) {
	html := `<html><body>` +
		`<h1>A proper article headline</h1>` +
		`<p>First paragraph with a reasonable amount of text in it.</p>` +
		`<p>Second paragraph, also carrying enough characters to count.</p>` +
		`<p>` + strings.Repeat("more body text ", 60) + `</p>` +
		`</body></html>`

	if !Sufficient(html, 200) {
		t.Error("page with several text-bearing elements should be sufficient")
	}
}

func TestSufficient_LargeBodyPasses(t *testing.T) {
	html := "<html><body>" + strings.Repeat("<br>", 2000) + "</body></html>"
	if len(html) <= 5000 {
		t.Fatalf("fixture too small: %d", len(html))
	}
	if !Sufficient(html, 200) {
		t.Error("large body should be sufficient")
	}
}

func TestSufficient_StructuralMarkers(t *testing.T) {
	html := `<html><body><table><tr><td>a</td></tr></table>` +
		"<!--" + strings.Repeat("x", 600) + "--></body></html>"
	if !Sufficient(html, 200) {
		t.Error("structural content should be sufficient")
	}
}
