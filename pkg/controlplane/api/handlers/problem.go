// Package handlers implements the HTTP handlers behind the Roster API
// router: candidate upload and job control, candidate queries, and health
// probes.
package handlers

import (
	"encoding/json"
	"net/http"
)

// ContentTypeProblemJSON is the media type of RFC 7807 responses.
const ContentTypeProblemJSON = "application/problem+json"

// Problem is an RFC 7807 "problem details" error body. Every non-2xx
// response from the API is a Problem so clients have one error shape to
// parse.
type Problem struct {
	Type     string `json:"type,omitempty"`     // problem type URI, "about:blank" when generic
	Title    string `json:"title"`              // short summary, fixed per status
	Status   int    `json:"status"`             // HTTP status code, duplicated in the body
	Detail   string `json:"detail,omitempty"`   // occurrence-specific explanation
	Instance string `json:"instance,omitempty"` // URI of this occurrence
}

func (p Problem) write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteProblem writes a generic problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	Problem{Type: "about:blank", Title: title, Status: status, Detail: detail}.write(w)
}

// WriteProblemWithType writes a problem response carrying a specific
// problem type URI, for errors clients are expected to branch on.
func WriteProblemWithType(w http.ResponseWriter, problemType string, status int, title, detail string) {
	Problem{Type: problemType, Title: title, Status: status, Detail: detail}.write(w)
}

// Shorthands for the statuses the handlers actually return.

func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

func Forbidden(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusForbidden, "Forbidden", detail)
}

func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

func Conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusConflict, "Conflict", detail)
}

func UnprocessableEntity(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// WriteJSON writes a JSON success response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONCreated writes a 201 Created JSON response.
func WriteJSONCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
