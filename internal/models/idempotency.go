package models

import "time"

// IdempotencyRecord captures the first response produced for a client
// key. Replays within the retention window return Status and Body
// verbatim; the record never diffs payloads.
type IdempotencyRecord struct {
	Key      string    `json:"key"`
	Status   int       `json:"status"`
	Body     []byte    `json:"body"`
	StoredAt time.Time `json:"stored_at"`
}
