package engine

import (
	"net/url"
	"strings"
)

// ExtractDomain canonicalizes the profile key for a URL: the hostname,
// lowercased, with one leading "www." removed. Ports are dropped. Subdomains
// are kept distinct because anti-bot defenses often differ per subdomain.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
