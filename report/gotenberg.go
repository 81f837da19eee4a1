package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// PageOptions controls the Chromium conversion. Sizes are in inches.
type PageOptions struct {
	PaperWidth      string
	PaperHeight     string
	Margin          string
	PrintBackground bool
}

// A4 is the page layout used for itineraries.
var A4 = PageOptions{PaperWidth: "8.27", PaperHeight: "11.7", Margin: "0.5", PrintBackground: true}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	page       PageOptions
}

// NewClient constructs a client rendering A4 pages.
func NewClient(baseURL string) *Client {
	return NewClientWith(baseURL, A4, 30*time.Second)
}

// NewClientWith constructs a client with explicit page options and timeout.
func NewClientWith(baseURL string, page PageOptions, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		page:       page,
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: gotenberg: %v", shared.ErrBackendUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: gotenberg health status %d", shared.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// RenderHTML converts a complete HTML document into a PDF.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("%w: empty document", shared.ErrValidation)
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	// Chromium route requires the entry file to be named index.html.
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	for name, value := range c.page.fields() {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: gotenberg: %v", shared.ErrBackendUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%w: render status %d: %s", shared.ErrBackendUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return io.ReadAll(resp.Body)
}

func (p PageOptions) fields() map[string]string {
	out := map[string]string{}
	if p.PaperWidth != "" {
		out["paperWidth"] = p.PaperWidth
	}
	if p.PaperHeight != "" {
		out["paperHeight"] = p.PaperHeight
	}
	if p.Margin != "" {
		for _, side := range []string{"marginTop", "marginBottom", "marginLeft", "marginRight"} {
			out[side] = p.Margin
		}
	}
	if p.PrintBackground {
		out["printBackground"] = "true"
	}
	return out
}
