package engine

import "regexp"

var (
	// Empty SPA root containers: the page arrived but nothing rendered into it.
	reEmptyShell = regexp.MustCompile(`(?i)<div[^>]+id=["'](?:root|app|__next|__nuxt)["'][^>]*>\s*</div>`)

	// A <body> that opens straight into <noscript> is a JS wall.
	reBodyNoscript = regexp.MustCompile(`(?i)<body[^>]*>\s*<noscript`)

	// Elements carrying at least 10 chars of direct text.
	reTextBearing = regexp.MustCompile(`(?is)<(?:p|h[1-6]|li|td|span|a|div)[^>]*>[^<]{10,}`)

	// Structural content markers.
	reStructural = regexp.MustCompile(`(?i)<(?:table|ul|ol|article|section|main|header)[\s>]`)
)

// Sufficient decides whether a fetched body is a real page rather than a
// block page or an unrendered shell. Rules evaluate in order; the first that
// matches decides.
func Sufficient(content string, statusCode int) bool {
	// 1. Block statuses always mean the defense won.
	switch statusCode {
	case 403, 429, 503:
		return false
	}

	n := len(content)

	// 2. Too small to be a page.
	if n < 500 {
		return false
	}

	// 3. Small shells are unrendered SPAs.
	noscriptWall := reBodyNoscript.MatchString(content)
	if n < 2000 && (noscriptWall || reEmptyShell.MatchString(content)) {
		return false
	}

	// 4. A mid-sized noscript wall with no real text is still a wall.
	textMatches := len(reTextBearing.FindAllStringIndex(content, 3))
	if noscriptWall && n < 5000 && textMatches < 3 {
		return false
	}

	// 5. Enough text-bearing elements on a non-trivial page.
	if textMatches >= 3 && n >= 1000 {
		return true
	}

	// 6. Large bodies pass outright.
	if n > 5000 {
		return true
	}

	// 7. Structural content markers pass.
	if reStructural.MatchString(content) {
		return true
	}

	// Passed the shell checks.
	return true
}
