// Package apiclient provides a REST API client for rosterctl.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// UserHeader is the identity header consulted by servers running with
// auth disabled. Mirrors the server's default.
const UserHeader = "X-Roster-User"

// Client is the Roster API client.
//
// Identity is attached to every request: a bearer token when one is set,
// otherwise the plain user header the server trusts in dev mode.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// uploadClient carries chunk bodies in the tens of MB; slow links
	// need more than the standard request timeout.
	uploadClient *http.Client

	token string
	user  string
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		uploadClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// WithToken returns a new client authenticating with the given bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// WithUser returns a new client identifying as the given user through the
// trusted user header. Ignored when a token is set.
func (c *Client) WithUser(user string) *Client {
	clone := *c
	clone.user = user
	return &clone
}

// SetToken sets the authentication token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetUser sets the dev-mode user identity.
func (c *Client) SetUser(user string) {
	c.user = user
}

// do performs an HTTP request and decodes the response.
func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setIdentity(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return decodeResponse(resp, result)
}

// postMultipart performs a POST request with a multipart form body: the
// given form fields plus one file part. Used by the chunk upload endpoint.
func (c *Client) postMultipart(path string, fields map[string]string, fileField, fileName string, data []byte, result any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	part, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	c.setIdentity(req)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return decodeResponse(resp, result)
}

// setIdentity attaches the caller identity to a request.
func (c *Client) setIdentity(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	if c.user != "" {
		req.Header.Set(UserHeader, c.user)
	}
}

// decodeResponse reads a response body, mapping error statuses to *APIError
// and decoding success bodies into result.
func decodeResponse(resp *http.Response, result any) error {
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Title != "" {
			apiErr.Status = resp.StatusCode
			return &apiErr
		}
		return &APIError{
			Status: resp.StatusCode,
			Title:  http.StatusText(resp.StatusCode),
			Detail: string(respBody),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// get performs a GET request.
func (c *Client) get(path string, result any) error {
	return c.do(http.MethodGet, path, nil, result)
}

// post performs a POST request.
func (c *Client) post(path string, body, result any) error {
	return c.do(http.MethodPost, path, body, result)
}
