package engine

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html/charset"

	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

// FastEngine performs a single HTTP GET with a Chrome-like TLS fingerprint.
// It follows a bounded number of redirects, accepts any status code, and can
// return the raw bytes base64-encoded for binary payloads.
type FastEngine struct {
	timeout      time.Duration
	maxRedirects int
	maxBody      int64
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Fallback: if spec generation fails, use HelloChrome_Auto as-is.
		// (Should never happen with a valid utls version.)
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewFastEngine creates a FastEngine from the fetch configuration.
func NewFastEngine(cfg config.FetchConfig) *FastEngine {
	return &FastEngine{
		timeout:      cfg.HTTPTimeout,
		maxRedirects: cfg.MaxRedirects,
		maxBody:      cfg.MaxBodyBytes,
	}
}

func (e *FastEngine) Name() string { return models.EngineFast }

func (e *FastEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	label := LabelFastDirect
	transport := &http.Transport{
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	if req.Proxy != "" {
		proxyURL, err := url.Parse(req.Proxy)
		if err != nil || (proxyURL.Scheme != "http" && proxyURL.Scheme != "https") {
			return nil, models.NewEngineError("fast", fmt.Errorf("invalid proxy url %q", req.Proxy))
		}
		// Proxied HTTPS goes through CONNECT with the standard TLS stack;
		// only direct connections carry the utls fingerprint.
		transport.Proxy = http.ProxyURL(proxyURL)
		label = LabelFastProxy
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) >= e.maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	defer client.CloseIdleConnections()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewEngineError("fast", fmt.Errorf("build request: %w", err))
	}
	for k, v := range BuildHeaders(req.Preset, req.Headers) {
		httpReq.Header.Set(k, v)
	}
	// Set explicitly so the transport does not inject its own; decoding
	// happens below.
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, models.NewEngineError("fast", err)
	}
	defer resp.Body.Close()

	decoded, err := decodeContentEncoding(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, models.NewEngineError("fast", fmt.Errorf("decode body: %w", err))
	}
	limited := io.LimitReader(decoded, e.maxBody)

	var content string
	if req.ResponseType == models.ResponseTypeBase64 {
		raw, err := io.ReadAll(limited)
		if err != nil {
			return nil, models.NewEngineError("fast", fmt.Errorf("read body: %w", err))
		}
		content = base64.StdEncoding.EncodeToString(raw)
	} else {
		// Decode legacy charsets to UTF-8 when the response declares one.
		utf8Reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
		if err != nil {
			utf8Reader = limited
		}
		body, err := io.ReadAll(utf8Reader)
		if err != nil {
			return nil, models.NewEngineError("fast", fmt.Errorf("read body: %w", err))
		}
		content = string(body)
	}

	return &Result{
		StatusCode:   resp.StatusCode,
		Content:      content,
		Headers:      headersToMap(resp.Header),
		FinalURL:     resp.Request.URL.String(),
		EngineUsed:   label,
		ResponseType: responseTypeOrText(req.ResponseType),
	}, nil
}

// dialTLSChrome establishes a TLS connection presenting the Chrome
// ClientHello.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// decodeContentEncoding unwraps the response body according to its
// Content-Encoding header.
func decodeContentEncoding(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return r, nil
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return brotli.NewReader(r), nil
	default:
		return r, nil
	}
}

func headersToMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func responseTypeOrText(rt string) string {
	if rt == "" {
		return models.ResponseTypeText
	}
	return rt
}
