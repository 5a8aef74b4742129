package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/rosterhq/roster/pkg/queue"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// Data Type        Prefix   Key Format                 Value Type
// ============================================================================
// Messages         "m:"     m:<seq, 8 bytes BE>        storedMessage (JSON)
// Sequence         "seq:"   seq:next                   badger sequence state
//
// Sequence numbers are encoded big-endian in the key so badger's
// lexicographic iteration order is FIFO order.

const (
	prefixMessage  = "m:"
	prefixSequence = "seq:"
)

// Message delivery states.
const (
	statePending  = "pending"
	stateInflight = "inflight"
)

// storedMessage is the persisted envelope: the public message plus its
// delivery state.
type storedMessage struct {
	queue.Message
	State string `json:"state"`
}

// keyMessage generates a key for a message: "m:<seq>"
func keyMessage(seq uint64) []byte {
	key := make([]byte, len(prefixMessage)+8)
	copy(key, prefixMessage)
	binary.BigEndian.PutUint64(key[len(prefixMessage):], seq)
	return key
}

// keySequence generates the key for the next-seq counter: "seq:next"
func keySequence() []byte {
	return []byte(prefixSequence + "next")
}

func encodeMessage(sm *storedMessage) ([]byte, error) {
	bytes, err := json.Marshal(sm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue message: %w", err)
	}
	return bytes, nil
}

func decodeMessage(bytes []byte) (*storedMessage, error) {
	var sm storedMessage
	if err := json.Unmarshal(bytes, &sm); err != nil {
		return nil, fmt.Errorf("failed to decode queue message: %w", err)
	}
	return &sm, nil
}
