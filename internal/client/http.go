package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/schema"

	"github.com/alfredjeanlab/todoboard/internal/idgen"
	"github.com/alfredjeanlab/todoboard/internal/model"
)

// DefaultBasePath is the path prefix of the todo API on the server.
const DefaultBasePath = "/api"

var queryEncoder = schema.NewEncoder()

// HTTPClient implements TodoClient using the todo HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	basePath   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithToken sets a bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// WithBasePath overrides DefaultBasePath. An empty path mounts the API at the
// server root.
func WithBasePath(p string) Option {
	return func(c *HTTPClient) { c.basePath = normalizeBasePath(p) }
}

// WithTimeout sets the overall per-request timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates a new HTTP client targeting the given server URL
// (e.g. "http://localhost:8000").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		basePath:   DefaultBasePath,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Lists ---

func (c *HTTPClient) ListLists(ctx context.Context) ([]model.TodoListSummary, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/todo/lists", nil)
	if err != nil {
		return nil, err
	}
	return model.DecodeListSummaries(raw)
}

// detailQuery is the query string of the list detail endpoint.
type detailQuery struct {
	IncludeItems bool `schema:"include_items"`
}

func (c *HTTPClient) GetListDetail(ctx context.Context, listID string) (*model.TodoListDetail, error) {
	q, err := encodeQuery(detailQuery{IncludeItems: true})
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, http.MethodGet, listPath(listID)+"?"+q, nil)
	if err != nil {
		return nil, err
	}
	return model.DecodeListDetail(raw)
}

func (c *HTTPClient) CreateList(ctx context.Context, in *model.CreateListInput) (*model.TodoList, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/todo/lists", in)
	if err != nil {
		return nil, err
	}
	return model.DecodeList(raw)
}

func (c *HTTPClient) UpdateList(ctx context.Context, in *model.UpdateListInput) (*model.TodoList, error) {
	raw, err := c.Request(ctx, http.MethodPatch, listPath(in.ListID), in)
	if err != nil {
		return nil, err
	}
	return model.DecodeList(raw)
}

func (c *HTTPClient) DeleteList(ctx context.Context, listID string) error {
	_, err := c.Request(ctx, http.MethodDelete, listPath(listID), nil)
	return err
}

// --- Items ---

func (c *HTTPClient) CreateItem(ctx context.Context, in *model.CreateItemInput) (*model.TodoItem, error) {
	raw, err := c.Request(ctx, http.MethodPost, listPath(in.ListID)+"/items", in)
	if err != nil {
		return nil, err
	}
	return model.DecodeItem(raw)
}

func (c *HTTPClient) UpdateItem(ctx context.Context, in *model.UpdateItemInput) (*model.TodoItem, error) {
	raw, err := c.Request(ctx, http.MethodPatch, itemPath(in.ItemID), in)
	if err != nil {
		return nil, err
	}
	return model.DecodeItem(raw)
}

func (c *HTTPClient) DeleteItem(ctx context.Context, itemID string) error {
	_, err := c.Request(ctx, http.MethodDelete, itemPath(itemID), nil)
	return err
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return "", err
	}
	if err := model.CheckSchema(model.SchemaHealth, raw); err != nil {
		return "", err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return resp.Status, nil
}

// --- internal helpers ---

func listPath(id string) string { return "/todo/lists/" + url.PathEscape(id) }
func itemPath(id string) string { return "/todo/items/" + url.PathEscape(id) }

func encodeQuery(v any) (string, error) {
	vals := url.Values{}
	if err := queryEncoder.Encode(v, vals); err != nil {
		return "", fmt.Errorf("encoding query: %w", err)
	}
	return vals.Encode(), nil
}

func normalizeBasePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// Request performs an HTTP request against the API and returns the raw JSON
// body. A nil body is returned for successful responses that carry no JSON
// (such as 204 No Content). Non-success statuses become *APIError; failures
// to complete the exchange become *NetworkError.
func (c *HTTPClient) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+c.basePath+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	requestID := idgen.MustRequestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("reading response: %w", err)}
	}
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, respBody),
			RequestID:  requestID,
		}
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, nil
	}
	return json.RawMessage(respBody), nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// errorMessage extracts the server's detail message, falling back to the
// status text and then to a generic message.
func errorMessage(status int, body []byte) string {
	if msg := detailMessage(body); msg != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Request failed"
}

// detailMessage renders the `detail` field of an error body. Strings are
// used as-is; objects contribute their `message`; request validation arrays
// are flattened to "field: msg" pairs.
func detailMessage(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Detail) == 0 {
		return ""
	}
	detail := envelope.Detail

	var s string
	if json.Unmarshal(detail, &s) == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(detail, &obj) == nil && obj.Message != "" {
		return obj.Message
	}

	var issues []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if json.Unmarshal(detail, &issues) == nil && len(issues) > 0 {
		parts := make([]string, 0, len(issues))
		for _, is := range issues {
			parts = append(parts, issuePath(is.Loc)+": "+is.Msg)
		}
		return strings.Join(parts, "; ")
	}

	if string(detail) == "null" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, detail); err != nil {
		return string(detail)
	}
	return compact.String()
}

// issuePath joins a validation location, dropping the leading "body" segment.
func issuePath(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && s == "body" && len(loc) > 1 {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "body"
	}
	return strings.Join(parts, ".")
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
