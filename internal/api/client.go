// Package api is the HTTP client for the finsight backend. Every call
// takes a context, returns typed results, and normalizes non-2xx
// responses into an *Error carrying the backend's detail message so no
// raw transport error ever reaches a view.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// DefaultBaseURL is the local development backend.
const DefaultBaseURL = "http://127.0.0.1:8000/api/v1"

const requestTimeout = 30 * time.Second

// Identity is the authenticated user the backend keys everything on.
type Identity struct {
	UserID string
	Email  string
}

// Valid reports whether the identity can authenticate requests.
func (id Identity) Valid() bool {
	return id.UserID != "" && id.Email != ""
}

// Error is a backend error response. The backend reports failures as
// non-2xx with a {"detail": "..."} body; Detail carries that message
// verbatim, or a generic fallback when the body was unparseable.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// UploadResult is the backend's response to a statement upload.
type UploadResult struct {
	Status        string `json:"status"`
	ImportedCount int    `json:"imported_count"`
}

// Client talks to the finsight backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL. An empty baseURL
// falls back to the local development default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL returns the backend base URL the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Login registers the identity with the backend, or looks it up if it
// already exists. The call is idempotent; exists reports whether the
// account pre-existed.
func (c *Client) Login(ctx context.Context, id Identity) (exists bool, err error) {
	if !id.Valid() {
		return false, fmt.Errorf("email and user id are required for login")
	}

	body := map[string]string{"email": id.Email, "clerk_id": id.UserID}
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.postJSON(ctx, "/login/login", id, body, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// FetchContext retrieves the full financial context for the identity.
func (c *Client) FetchContext(ctx context.Context, id Identity) (finance.Context, error) {
	if id.UserID == "" {
		return finance.Context{}, fmt.Errorf("user id is required to fetch context")
	}

	u := c.baseURL + "/user/context?" + url.Values{"clerk_id": {id.UserID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return finance.Context{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var fin finance.Context
	if err := c.do(req, &fin); err != nil {
		return finance.Context{}, err
	}
	return fin, nil
}

// Upload sends a statement CSV as a multipart form. The backend parses
// it and reports how many transactions were imported.
func (c *Client) Upload(ctx context.Context, id Identity, filename string, r io.Reader) (UploadResult, error) {
	if id.UserID == "" {
		return UploadResult{}, fmt.Errorf("user id is required for upload")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("failed to read statement: %w", err)
	}
	if err := mw.WriteField("clerk_id", id.UserID); err != nil {
		return UploadResult{}, fmt.Errorf("failed to build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user/upload", &buf)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// AddTransaction creates a single transaction and returns the full
// replacement context.
func (c *Client) AddTransaction(ctx context.Context, id Identity, tx finance.NewTransaction) (finance.Context, error) {
	var fin finance.Context
	if err := c.postJSON(ctx, "/user/transactions", id, tx, &fin); err != nil {
		return finance.Context{}, err
	}
	return fin, nil
}

// AddPolicy creates a spending policy and returns the full replacement
// context.
func (c *Client) AddPolicy(ctx context.Context, id Identity, p finance.NewPolicy) (finance.Context, error) {
	var fin finance.Context
	if err := c.postJSON(ctx, "/user/policies", id, p, &fin); err != nil {
		return finance.Context{}, err
	}
	return fin, nil
}

// SetGoal creates or replaces the user's savings goal.
func (c *Client) SetGoal(ctx context.Context, id Identity, g finance.NewGoal) error {
	return c.postJSON(ctx, "/goal/", id, g, nil)
}

// postJSON sends a JSON body with the Clerk-Id header and decodes the
// response into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, id Identity, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id.UserID != "" {
		req.Header.Set("Clerk-Id", id.UserID)
	}

	return c.do(req, out)
}

// do executes the request, maps non-2xx responses to *Error, and
// decodes a successful body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError extracts the backend's detail message from an error
// response.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Detail: "unknown server error"}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}
