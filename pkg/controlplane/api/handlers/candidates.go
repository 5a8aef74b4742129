package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/controlplane/api/middleware"
	jobsvc "github.com/rosterhq/roster/pkg/controlplane/jobs"
	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/rosterhq/roster/pkg/upload"
)

const (
	// maxUploadBody caps one upload-chunk request body. The assembler
	// enforces its own per-chunk limit; this only stops a runaway body
	// from being buffered in full.
	maxUploadBody = 64 << 20

	// maxUploadMemory is the multipart in-memory threshold; larger
	// bodies spill to temp files.
	maxUploadMemory = 8 << 20

	defaultPageSize = 50
	maxPageSize     = 500
)

// ChunkReceiver assembles chunked uploads and answers header lookups on
// assembled objects.
type ChunkReceiver interface {
	ReceiveChunk(ctx context.Context, userID string, req upload.ChunkRequest) (*upload.ChunkResult, error)
	Headers(ctx context.Context, key string) ([]string, error)
}

// JobControl drives import jobs on behalf of one user.
type JobControl interface {
	Create(ctx context.Context, p jobsvc.CreateParams) (*models.UploadJob, error)
	Status(ctx context.Context, userID, jobID string) (*models.UploadJob, error)
	History(ctx context.Context, userID string) ([]*models.UploadJob, error)
	Pause(ctx context.Context, userID, jobID string) (*models.UploadJob, error)
	Resume(ctx context.Context, userID, jobID string) (*models.UploadJob, error)
}

// CandidatesHandler handles the candidate import endpoints: chunked
// upload, header preview, job control and candidate queries.
type CandidatesHandler struct {
	uploads    ChunkReceiver
	jobs       JobControl
	candidates models.CandidateStore
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(uploads ChunkReceiver, jobs JobControl, candidates models.CandidateStore) *CandidatesHandler {
	return &CandidatesHandler{
		uploads:    uploads,
		jobs:       jobs,
		candidates: candidates,
	}
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// chunkResponse is the answer to one upload-chunk call. Headers and
// FilePath are present only when the final chunk completed the upload.
type chunkResponse struct {
	Status   upload.Status `json:"status"`
	Progress int           `json:"progress"`
	Headers  []string      `json:"headers,omitempty"`
	FilePath string        `json:"filePath,omitempty"`
}

type headersRequest struct {
	FilePath string `json:"filePath"`
}

type headersResponse struct {
	Headers  []string `json:"headers"`
	FilePath string   `json:"filePath"`
}

type processRequest struct {
	FilePath string `json:"filePath"`
	// FileName is the optional display name; when absent it is
	// recovered from the storage key.
	FileName string `json:"fileName,omitempty"`
	// Headers is advisory. The layout stored on the job comes from
	// server-side detection so a tampered or stale client value cannot
	// poison reprocessing.
	Headers []string          `json:"headers,omitempty"`
	Mapping map[string]string `json:"mapping"`
}

type processResponse struct {
	JobID string `json:"jobId"`
}

type jobListResponse struct {
	Jobs []*models.UploadJob `json:"jobs"`
}

type candidateListResponse struct {
	Candidates []*models.Candidate `json:"candidates"`
	Total      int64               `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// ============================================================================
// UPLOAD ENDPOINTS
// ============================================================================

// UploadChunk handles POST /candidates/upload-chunk.
//
// The request is a multipart form with fields fileName, chunkIndex and
// totalChunks plus the chunk body in the "file" part. Chunks must arrive
// strictly in order; the final chunk answer carries the detected headers
// and the storage key of the assembled object.
func (h *CandidatesHandler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		BadRequest(w, "Malformed multipart form: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	chunkIndex, err := strconv.Atoi(r.FormValue("chunkIndex"))
	if err != nil {
		BadRequest(w, "chunkIndex must be an integer")
		return
	}
	totalChunks, err := strconv.Atoi(r.FormValue("totalChunks"))
	if err != nil {
		BadRequest(w, "totalChunks must be an integer")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "Missing file part")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read chunk body", logger.KeyUserID, userID, "error", err)
		InternalServerError(w, "Failed to read chunk body")
		return
	}

	result, err := h.uploads.ReceiveChunk(r.Context(), userID, upload.ChunkRequest{
		FileName:    r.FormValue("fileName"),
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		Data:        data,
	})
	if err != nil {
		writeUploadError(w, err)
		return
	}

	WriteJSONOK(w, chunkResponse{
		Status:   result.Status,
		Progress: result.ProgressPct,
		Headers:  result.Headers,
		FilePath: result.StorageKey,
	})
}

// Headers handles POST /candidates/headers. It re-detects the column
// names of an already assembled object so a client can rebuild the
// mapping screen without re-uploading.
func (h *CandidatesHandler) Headers(w http.ResponseWriter, r *http.Request) {
	var req headersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Malformed JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		BadRequest(w, "filePath is required")
		return
	}

	headers, err := h.uploads.Headers(r.Context(), req.FilePath)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			NotFound(w, "No uploaded file at "+req.FilePath)
			return
		}
		logger.Error("Header detection failed", logger.KeyKey, req.FilePath, "error", err)
		InternalServerError(w, "Failed to detect headers")
		return
	}

	WriteJSONOK(w, headersResponse{Headers: headers, FilePath: req.FilePath})
}

// ============================================================================
// JOB ENDPOINTS
// ============================================================================

// Process handles POST /candidates/process. It creates an import job
// for an uploaded file and queues it for background processing; the
// answer is 202 with the job id to poll.
func (h *CandidatesHandler) Process(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Malformed JSON body: "+err.Error())
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = fileNameFromKey(req.FilePath)
	}

	job, err := h.jobs.Create(r.Context(), jobsvc.CreateParams{
		UserID:     userID,
		StorageKey: req.FilePath,
		FileName:   fileName,
		Mapping:    req.Mapping,
	})
	if err != nil {
		switch {
		case job != nil:
			// Persisted but not queued; a resume retries the enqueue.
			InternalServerError(w, "Job "+job.ID+" was created but could not be queued; resume it to retry")
		case errors.Is(err, jobsvc.ErrSourceNotFound):
			NotFound(w, err.Error())
		case errors.Is(err, jobsvc.ErrMissingStorageKey),
			errors.Is(err, jobsvc.ErrEmptyMapping),
			errors.Is(err, jobsvc.ErrUnknownField):
			BadRequest(w, err.Error())
		default:
			logger.Error("Job creation failed", logger.KeyUserID, userID, "error", err)
			InternalServerError(w, "Failed to create processing job")
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, processResponse{JobID: job.ID})
}

// JobStatus handles GET /candidates/job/{jobId}/status.
func (h *CandidatesHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	jobID := chi.URLParam(r, "jobId")

	job, err := h.jobs.Status(r.Context(), userID, jobID)
	if err != nil {
		writeJobError(w, jobID, err)
		return
	}

	WriteJSONOK(w, presentJob(job))
}

// JobHistory handles GET /candidates/jobs - the caller's jobs, newest
// first.
func (h *CandidatesHandler) JobHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	jobs, err := h.jobs.History(r.Context(), userID)
	if err != nil {
		logger.Error("Job history lookup failed", logger.KeyUserID, userID, "error", err)
		InternalServerError(w, "Failed to list jobs")
		return
	}

	WriteJSONOK(w, jobListResponse{Jobs: jobs})
}

// Pause handles POST /candidates/{jobId}/pause. Idempotent: pausing an
// already pausing or terminal job succeeds without effect.
func (h *CandidatesHandler) Pause(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	jobID := chi.URLParam(r, "jobId")

	job, err := h.jobs.Pause(r.Context(), userID, jobID)
	if err != nil {
		writeJobError(w, jobID, err)
		return
	}

	WriteJSONOK(w, presentJob(job))
}

// Resume handles POST /candidates/{jobId}/resume.
func (h *CandidatesHandler) Resume(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	jobID := chi.URLParam(r, "jobId")

	job, err := h.jobs.Resume(r.Context(), userID, jobID)
	if err != nil {
		writeJobError(w, jobID, err)
		return
	}

	WriteJSONOK(w, presentJob(job))
}

// ============================================================================
// CANDIDATE QUERIES
// ============================================================================

// List handles GET /candidates with optional jobId, search, limit and
// offset query parameters.
func (h *CandidatesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parsePositiveInt(q.Get("limit"), defaultPageSize)
	if err != nil {
		BadRequest(w, "limit must be a positive integer")
		return
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err := parsePositiveInt(q.Get("offset"), 0)
	if err != nil {
		BadRequest(w, "offset must be a non-negative integer")
		return
	}

	candidates, total, err := h.candidates.ListCandidates(r.Context(), models.CandidateFilter{
		UploadJobID: q.Get("jobId"),
		Search:      q.Get("search"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		logger.Error("Candidate query failed", "error", err)
		InternalServerError(w, "Failed to list candidates")
		return
	}

	WriteJSONOK(w, candidateListResponse{
		Candidates: candidates,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

// ============================================================================
// HELPERS
// ============================================================================

// presentJob fills the derived JSON-only mapping and header fields
// before serialization. Parse failures leave them empty rather than
// blocking a status answer.
func presentJob(job *models.UploadJob) *models.UploadJob {
	_, _ = job.GetMapping()
	_, _ = job.GetHeaders()
	return job
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrChunkTooLarge):
		WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, upload.ErrChunkOutOfOrder), errors.Is(err, upload.ErrChunkMismatch):
		Conflict(w, err.Error())
	case errors.Is(err, upload.ErrInvalidChunk):
		BadRequest(w, err.Error())
	default:
		logger.Error("Chunk ingestion failed", "error", err)
		InternalServerError(w, "Failed to store chunk")
	}
}

func writeJobError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		NotFound(w, "No job with id "+jobID)
	case errors.Is(err, models.ErrJobNotResumable):
		Conflict(w, err.Error())
	default:
		logger.Error("Job control call failed", logger.KeyJobID, jobID, "error", err)
		InternalServerError(w, "Job control call failed")
	}
}

// fileNameFromKey recovers a display name from a storage key shaped
// like "uploads/{user}/{stamp}_{name}". Falls back to the key's base
// segment when the stamp prefix is absent.
func fileNameFromKey(key string) string {
	base := path.Base(key)
	if i := strings.IndexByte(base, '_'); i > 0 {
		if _, err := strconv.ParseInt(base[:i], 10, 64); err == nil && i+1 < len(base) {
			return base[i+1:]
		}
	}
	return base
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return n, nil
}
