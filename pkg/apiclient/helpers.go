package apiclient

import "fmt"

// getResource performs a GET request to the given path and decodes the
// response body into a value of type T. Returns a pointer to the decoded
// value.
//
// Example:
//
//	job, err := getResource[Job](c, "/candidates/job/123/status")
func getResource[T any](c *Client, path string) (*T, error) {
	var result T
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// postResource performs a POST request to the given path with the provided
// body and decodes the response into a value of type T. Returns a pointer
// to the decoded value.
//
// Example:
//
//	resp, err := postResource[HeadersResult](c, "/candidates/headers", req)
func postResource[T any](c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.post(path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// resourcePath builds a resource path by formatting a path template with the
// given arguments using fmt.Sprintf.
//
// Example:
//
//	path := resourcePath("/candidates/%s/pause", jobID)
func resourcePath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
