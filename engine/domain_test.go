package engine

import "testing"

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "https://example.com/page", "example.com"},
		{"www stripped", "https://www.example.com/", "example.com"},
		{"case folded", "https://WWW.Example.COM/path", "example.com"},
		{"port dropped", "http://example.com:8080/x", "example.com"},
		{"subdomain kept", "https://shop.example.com/", "shop.example.com"},
		{"www subdomain", "https://www.shop.example.com/", "shop.example.com"},
		{"query ignored", "https://example.com/?q=www.other.com", "example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDomain(tt.url)
			if got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractDomain_SameKeyAcrossVariants(t *testing.T) {
	urls := []string{
		"https://example.com/a",
		"https://www.example.com/b",
		"http://EXAMPLE.com:3000/c",
	}
	want := ExtractDomain(urls[0])
	for _, u := range urls[1:] {
		if got := ExtractDomain(u); got != want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", u, got, want)
		}
	}
}
