// Package health mirrors the wire shape of the server's /health endpoint
// for the status commands in rosterd and rosterctl.
package health

// Response decodes a liveness probe body. Timestamps come back as
// RFC 3339 strings; Uptime is a Go duration string.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}
