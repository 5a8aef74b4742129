package queue

// Metrics receives delivery observations from the worker pool.
// Implementations must be safe for concurrent use. A nil Metrics disables
// recording.
type Metrics interface {
	// Delivered is called once per handler invocation with the delivery
	// attempt number (1-based).
	Delivered(attempt int)

	// Settled is called once per finished delivery with the outcome:
	// "acked", "retried" or "exhausted".
	Settled(outcome string)

	// SetDepth records a point-in-time queue depth snapshot.
	SetDepth(pending, inflight int)
}
