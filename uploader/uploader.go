// Package uploader pushes downloaded resources to the user-named upload
// sink via multipart POST.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/gofetch/models"
)

// Client talks to one upload sink per call; the sink address arrives with
// each request.
type Client struct {
	httpClient *http.Client
}

// New creates an upload client.
func New() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// sinkResponse is the success shape of the upload endpoint.
type sinkResponse struct {
	Files []struct {
		URLs struct {
			Original string `json:"original"`
		} `json:"urls"`
	} `json:"files"`
}

// Upload POSTs the buffer as multipart field "files" and returns the URL the
// sink assigned to it.
func (c *Client) Upload(ctx context.Context, cfg *models.UploadConfig, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", Filename(mimeType))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/files/%s/upload", strings.TrimRight(cfg.BaseURL, "/"), cfg.Bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sink returned status %d", resp.StatusCode)
	}

	var sr sinkResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", fmt.Errorf("parse upload response: %w", err)
	}
	if len(sr.Files) == 0 || sr.Files[0].URLs.Original == "" {
		return "", fmt.Errorf("sink response carries no file url")
	}
	return sr.Files[0].URLs.Original, nil
}

// Filename synthesises a collision-free name for an uploaded buffer, with
// the extension derived from the MIME type.
func Filename(mimeType string) string {
	return fmt.Sprintf("crawl_%d_%s.%s",
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		extensionFor(mimeType),
	)
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	case "image/avif":
		return "avif"
	case "application/pdf":
		return "pdf"
	default:
		return "bin"
	}
}
