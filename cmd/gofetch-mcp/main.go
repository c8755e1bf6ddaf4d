package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// fetchRequest mirrors the crawler API request model.
type fetchRequest struct {
	URL           string `json:"url"`
	Engine        string `json:"engine,omitempty"`
	RenderDelayMs int    `json:"renderDelayMs,omitempty"`
	Format        string `json:"format,omitempty"`
	ResponseType  string `json:"responseType,omitempty"`
}

// advancedRequest mirrors the advanced fetch API request model.
type advancedRequest struct {
	URL         string   `json:"url"`
	JsAction    string   `json:"jsAction,omitempty"`
	APIPatterns []string `json:"apiPatterns,omitempty"`
}

// fetchResponse mirrors the crawler API response envelope.
type fetchResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
	Content    string `json:"content"`
	Markdown   string `json:"markdown"`
	URL        string `json:"url"`
	EngineUsed string `json:"engineUsed"`
}

// advancedResponse mirrors the advanced fetch API response envelope.
type advancedResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
	Content    string `json:"content"`
	URL        string `json:"url"`
	APICalls   []struct {
		URL    string `json:"url"`
		Method string `json:"method"`
		Status int    `json:"status"`
	} `json:"apiCalls"`
	Resources []struct {
		OriginalURL string `json:"originalUrl"`
		Status      string `json:"status"`
		UploadedURL string `json:"uploadedUrl"`
		Error       string `json:"error"`
	} `json:"resources"`
}

// statusResponse mirrors the status API response.
type statusResponse struct {
	Status           string `json:"status"`
	ActiveRequests   int64  `json:"activeRequests"`
	BrowserConnected bool   `json:"browserConnected"`
	Uptime           int64  `json:"uptime"`
}

// profilesResponse mirrors the domain-profiles API response.
type profilesResponse struct {
	Profiles []struct {
		Domain        string `json:"domain"`
		Engine        string `json:"engine"`
		RenderDelayMs int    `json:"renderDelayMs"`
		UseProxy      bool   `json:"useProxy"`
		HitCount      int    `json:"hitCount"`
	} `json:"profiles"`
	Count int `json:"count"`
}

func main() {
	apiURL := os.Getenv("GOFETCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3001"
	}
	adminURL := os.Getenv("GOFETCH_ADMIN_URL")
	if adminURL == "" {
		adminURL = "http://127.0.0.1:3000"
	}
	apiKey := os.Getenv("GOFETCH_API_KEY")

	s := server.NewMCPServer(
		"gofetch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	fetchPageTool := mcp.NewTool("fetch_page",
		mcp.WithDescription("Fetch a web page and return its content. Automatically escalates from plain HTTP to a headless browser when a page blocks simple clients or needs JavaScript rendering."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to fetch"),
		),
		mcp.WithString("engine",
			mcp.Description("Fetch engine: 'auto' (default, adaptive escalation), 'fast' (plain HTTP), 'browser' (remote headless browser), or 'stealth' (local anti-detection browser)"),
			mcp.Enum("auto", "fast", "browser", "stealth"),
		),
		mcp.WithString("format",
			mcp.Description("Content format: 'html' (default, raw page), 'html-stripped' (scripts and styles removed), or 'markdown'"),
			mcp.Enum("html", "html-stripped", "markdown"),
		),
		mcp.WithNumber("render_delay_ms",
			mcp.Description("Extra settle time in milliseconds after the page loads (browser engines only)"),
		),
	)
	s.AddTool(fetchPageTool, handleFetchPage(apiURL, apiKey))

	fetchAdvancedTool := mcp.NewTool("fetch_advanced",
		mcp.WithDescription("Fetch a page in a browser while capturing matching API responses and optionally running a JavaScript action on the page first. Returns the page content plus the captured API calls."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to fetch"),
		),
		mcp.WithString("js_action",
			mcp.Description("JavaScript statements to run on the page after load, e.g. clicking a 'load more' button"),
		),
		mcp.WithArray("api_patterns",
			mcp.Description("Regex patterns matched against network request URLs; responses of matching requests are captured and returned"),
		),
	)
	s.AddTool(fetchAdvancedTool, handleFetchAdvanced(apiURL, apiKey))

	statusTool := mcp.NewTool("service_status",
		mcp.WithDescription("Report the fetch service status: active requests, browser pool connectivity and uptime."),
	)
	s.AddTool(statusTool, handleStatus(apiURL, apiKey))

	profilesTool := mcp.NewTool("list_domain_profiles",
		mcp.WithDescription("List the learned per-domain fetch profiles: which engine each domain needs and how often the profile has been reused."),
	)
	s.AddTool(profilesTool, handleListProfiles(adminURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the fetch API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the fetch API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleFetchPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := fetchRequest{
			URL:           url,
			Engine:        request.GetString("engine", ""),
			Format:        request.GetString("format", ""),
			RenderDelayMs: request.GetInt("render_delay_ms", 0),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/fetch", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fetch request failed: %v", err)), nil
		}

		var fetchResp fetchResponse
		if err := json.Unmarshal(respBody, &fetchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !fetchResp.Success {
			errMsg := "fetch failed"
			if fetchResp.Error != "" {
				errMsg = fetchResp.Error
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		content := fetchResp.Content
		if fetchResp.Markdown != "" {
			content = fetchResp.Markdown
		}

		result := fmt.Sprintf("URL: %s\nEngine: %s\nStatus: %d\n\n%s",
			fetchResp.URL, fetchResp.EngineUsed, fetchResp.StatusCode, content)

		return mcp.NewToolResultText(result), nil
	}
}

func handleFetchAdvanced(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := advancedRequest{
			URL:      url,
			JsAction: request.GetString("js_action", ""),
		}
		if patterns, err := request.RequireStringSlice("api_patterns"); err == nil {
			reqBody.APIPatterns = patterns
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/fetch/advanced", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("advanced fetch request failed: %v", err)), nil
		}

		var advResp advancedResponse
		if err := json.Unmarshal(respBody, &advResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !advResp.Success {
			errMsg := "advanced fetch failed"
			if advResp.Error != "" {
				errMsg = advResp.Error
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("URL: %s\nStatus: %d\n", advResp.URL, advResp.StatusCode))

		if len(advResp.APICalls) > 0 {
			sb.WriteString(fmt.Sprintf("\nCaptured %d API calls:\n", len(advResp.APICalls)))
			for _, call := range advResp.APICalls {
				sb.WriteString(fmt.Sprintf("  %s %s -> %d\n", call.Method, call.URL, call.Status))
			}
		}
		if len(advResp.Resources) > 0 {
			sb.WriteString(fmt.Sprintf("\nDownloaded %d resources:\n", len(advResp.Resources)))
			for _, r := range advResp.Resources {
				if r.Status == "success" {
					sb.WriteString(fmt.Sprintf("  %s -> %s\n", r.OriginalURL, r.UploadedURL))
				} else {
					sb.WriteString(fmt.Sprintf("  %s FAILED: %s\n", r.OriginalURL, r.Error))
				}
			}
		}

		sb.WriteString("\n")
		sb.WriteString(advResp.Content)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleStatus(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/status")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status request failed: %v", err)), nil
		}

		var status statusResponse
		if err := json.Unmarshal(respBody, &status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		result := fmt.Sprintf("Status: %s\nActive requests: %d\nBrowser connected: %t\nUptime: %ds",
			status.Status, status.ActiveRequests, status.BrowserConnected, status.Uptime)

		return mcp.NewToolResultText(result), nil
	}
}

func handleListProfiles(adminURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiGet(ctx, client, adminURL, apiKey, "/api/domain-profiles")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("profiles request failed: %v", err)), nil
		}

		var profiles profilesResponse
		if err := json.Unmarshal(respBody, &profiles); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if profiles.Count == 0 {
			return mcp.NewToolResultText("No domain profiles learned yet."), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%d domain profiles:\n\n", profiles.Count))
		for _, p := range profiles.Profiles {
			proxy := ""
			if p.UseProxy {
				proxy = " +proxy"
			}
			sb.WriteString(fmt.Sprintf("%s: %s%s (delay %dms, %d hits)\n",
				p.Domain, p.Engine, proxy, p.RenderDelayMs, p.HitCount))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
