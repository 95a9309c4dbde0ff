// Package analysis provides a client for the remote sentiment analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the analysis service operations.
type Client interface {
	// Health checks service liveness. Any non-2xx status or transport error is returned as an error.
	Health(ctx context.Context) error
	// AnalyzeText analyzes one piece of text.
	AnalyzeText(ctx context.Context, text string) (*Result, error)
	// AnalyzeFile uploads a file payload for server-side parsing and analysis.
	AnalyzeFile(ctx context.Context, payload []byte, filename string) (*Result, error)
}

// TextTransport selects how AnalyzeText encodes its request.
type TextTransport string

const (
	// TransportJSON posts {"text": ...}.
	TransportJSON TextTransport = "json"
	// TransportFile posts the text as a single-entry multipart file.
	TransportFile TextTransport = "file"
)

// TextFilename is the synthesized filename used by TransportFile.
const TextFilename = "input.txt"

// maxErrorBody caps how much of a non-2xx body is kept on the error.
const maxErrorBody = 512

// Option configures the analysis client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets a client-side request timeout. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithTextTransport selects the AnalyzeText encoding.
func WithTextTransport(t TextTransport) Option {
	return func(c *httpClient) {
		if t == TransportFile {
			c.transport = TransportFile
		} else {
			c.transport = TransportJSON
		}
	}
}

// WithRateLimit throttles analysis requests to rps. Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL   string
	http      *http.Client
	transport TextTransport
	limiter   *rate.Limiter
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		transport: TransportJSON,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return NewError(KindUnreachable, "analysis: create health request", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	_, err = c.do(req)
	return err
}

func (c *httpClient) AnalyzeText(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewError(KindInvalidInput, "analysis: text is empty", nil)
	}

	if c.transport == TransportFile {
		return c.analyzeFile(ctx, []byte(text), TextFilename, text)
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, NewError(KindInvalidInput, "analysis: marshal text", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, NewError(KindUnreachable, "analysis: create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return Normalize(body, text)
}

func (c *httpClient) AnalyzeFile(ctx context.Context, payload []byte, filename string) (*Result, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, NewError(KindInvalidInput, "analysis: filename is empty", nil)
	}
	if len(payload) == 0 {
		return nil, NewError(KindInvalidInput, "analysis: file is empty", nil)
	}
	return c.analyzeFile(ctx, payload, filename, filename)
}

// analyzeFile uploads payload as the multipart "file" field. text labels the
// row when the service answers with the flat shape.
func (c *httpClient) analyzeFile(ctx context.Context, payload []byte, filename, text string) (*Result, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", contentType(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, NewError(KindInvalidInput, "analysis: create multipart part", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, NewError(KindInvalidInput, "analysis: write multipart part", err)
	}
	if err := w.Close(); err != nil {
		return nil, NewError(KindInvalidInput, "analysis: close multipart writer", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, NewError(KindUnreachable, "analysis: create request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, err := c.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return Normalize(body, text)
}

// analyze waits on the rate limiter, then executes req.
func (c *httpClient) analyze(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewError(KindUnreachable, "analysis: rate limit wait", err)
		}
	}
	return c.do(req)
}

// do executes req once. Transport failures map to KindUnreachable and
// non-2xx statuses to KindServiceError. There are no retries.
func (c *httpClient) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, NewError(KindUnreachable, "analysis: request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindUnreachable, "analysis: read response body", err)
	}

	zap.L().Debug("analysis: request complete",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &Error{Kind: KindServiceError, StatusCode: resp.StatusCode, Body: msg, Msg: "analysis: backend error"}
	}

	return body, nil
}

// uploadTypes covers extensions missing from Go's builtin MIME table.
var uploadTypes = map[string]string{
	".txt":  "text/plain; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".tsv":  "text/tab-separated-values; charset=utf-8",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func contentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := uploadTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
