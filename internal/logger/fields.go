package logger

// Shared attribute keys. Log statements across packages use these names
// so counters and identifiers stay greppable and aggregatable; one-off
// keys are written inline at the call site.
const (
	KeyUserID = "user_id" // authenticated user identifier
	KeyError  = "error"   // error message

	// Jobs and ingestion
	KeyJobID        = "job_id"        // upload job identifier
	KeyRowsSeen     = "rows_seen"     // data rows consumed from the source
	KeyRowsInserted = "rows_inserted" // rows handed to the datastore
	KeyRowsRejected = "rows_rejected" // rows dropped by validation
	KeyBatchSize    = "batch_size"    // rows in the current batch
	KeyResumeFrom   = "resume_from"   // data-row offset a run resumes at

	// Uploads and tabular layout
	KeyFilename    = "filename"     // original upload file name
	KeyChunkIndex  = "chunk_index"  // zero-based chunk ordinal
	KeyTotalChunks = "total_chunks" // chunk count for the logical upload
	KeyDelimiter   = "delimiter"    // detected field delimiter
	KeyHeaderRow   = "header_row"   // zero-based header line index
	KeyColumns     = "columns"      // number of detected columns

	// Object storage and queue
	KeyKey      = "key"       // object key
	KeyQueueKey = "queue_key" // ordering key of a queued task
	KeySeq      = "seq"       // queue sequence number
)
