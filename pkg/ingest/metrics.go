package ingest

import "time"

// Metrics receives pipeline observations. Implementations must be safe for
// concurrent use. A nil Metrics disables recording.
type Metrics interface {
	// JobStarted is called once per claimed run.
	JobStarted()

	// JobFinished is called once per run with the terminal outcome:
	// "completed", "failed" or "paused".
	JobFinished(outcome string, duration time.Duration)

	// AddRows records row deltas by outcome: "inserted" or "rejected".
	AddRows(outcome string, n int)

	// ObserveBatchInsert records one datastore batch write.
	ObserveBatchInsert(rows int, duration time.Duration, err error)
}
