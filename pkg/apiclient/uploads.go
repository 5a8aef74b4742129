package apiclient

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Chunk status values as answered by the server.
const (
	// ChunkStatusReceived means more chunks are expected.
	ChunkStatusReceived = "chunk_received"

	// ChunkStatusDone means the file is fully assembled server-side.
	ChunkStatusDone = "done"
)

// DefaultChunkSize is the chunk size used by UploadFile when none is given.
// Kept well under the server's per-chunk cap so default-configured servers
// never reject a chunk.
const DefaultChunkSize = 8 << 20

// ChunkResult is the server's answer to one uploaded chunk. Headers and
// FilePath are set only on the final chunk, when Status is ChunkStatusDone.
type ChunkResult struct {
	Status   string   `json:"status"`
	Progress int      `json:"progress"`
	Headers  []string `json:"headers,omitempty"`
	FilePath string   `json:"filePath,omitempty"`
}

// HeadersResult is the answer to a header re-detection call.
type HeadersResult struct {
	Headers  []string `json:"headers"`
	FilePath string   `json:"filePath"`
}

type headersRequest struct {
	FilePath string `json:"filePath"`
}

// UploadChunk sends one chunk of a file. Chunks must be sent strictly in
// order, starting at index 0; the server rejects gaps and repeats with a
// conflict error.
func (c *Client) UploadChunk(fileName string, chunkIndex, totalChunks int, data []byte) (*ChunkResult, error) {
	fields := map[string]string{
		"fileName":    fileName,
		"chunkIndex":  strconv.Itoa(chunkIndex),
		"totalChunks": strconv.Itoa(totalChunks),
	}

	var result ChunkResult
	if err := c.postMultipart("/candidates/upload-chunk", fields, "file", fileName, data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Headers re-detects the column names of an already uploaded file, so the
// mapping can be rebuilt without re-uploading.
func (c *Client) Headers(filePath string) (*HeadersResult, error) {
	return postResource[HeadersResult](c, "/candidates/headers", headersRequest{FilePath: filePath})
}

// UploadProgress reports the state of an in-flight UploadFile call after
// each chunk is acknowledged.
type UploadProgress struct {
	// ChunkIndex is the zero-based index of the chunk just acknowledged.
	ChunkIndex int

	// TotalChunks is the number of chunks the file was split into.
	TotalChunks int

	// BytesSent counts payload bytes acknowledged so far.
	BytesSent int64

	// TotalBytes is the file size.
	TotalBytes int64
}

// UploadFile uploads a local file as a sequence of chunks and returns the
// final result carrying the detected headers and the server-side storage
// key. chunkSize <= 0 uses DefaultChunkSize. onProgress, when non-nil, is
// called after each acknowledged chunk.
//
// The upload is resumable only in the sense that re-running it continues
// the same logical upload: the server tracks progress by user and file
// name, so a retry after a partial failure must re-send from the first
// unacknowledged chunk. Re-sending from index 0 against a partially
// assembled upload is answered with a conflict.
func (c *Client) UploadFile(path string, chunkSize int64, onProgress func(UploadProgress)) (*ChunkResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil, errors.New("file is empty")
	}

	totalChunks := int((size + chunkSize - 1) / chunkSize)
	fileName := filepath.Base(path)

	buf := make([]byte, chunkSize)
	var sent int64
	var result *ChunkResult

	for index := 0; index < totalChunks; index++ {
		n, err := io.ReadFull(file, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			// Final chunk is short.
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %d: %w", index, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("file truncated while uploading chunk %d", index)
		}

		result, err = c.UploadChunk(fileName, index, totalChunks, buf[:n])
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d failed: %w", index+1, totalChunks, err)
		}

		sent += int64(n)
		if onProgress != nil {
			onProgress(UploadProgress{
				ChunkIndex:  index,
				TotalChunks: totalChunks,
				BytesSent:   sent,
				TotalBytes:  size,
			})
		}
	}

	if result == nil || result.Status != ChunkStatusDone {
		return nil, errors.New("upload ended without completion acknowledgement")
	}
	return result, nil
}
