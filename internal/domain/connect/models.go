package connect

import "time"

// ClientRecord is a persisted bank-account link: the user's form data
// joined with the item identifier the aggregation provider returned
// after the user authenticated with their bank.
//
// Records are append-only. item_id is unique; inserting a duplicate is
// a silent no-op, never an error.
type ClientRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ItemID    string    `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionResult describes the outcome of a widget success callback.
type CompletionResult struct {
	// Saved is true when this callback created a new record. It is
	// false on re-renders of an already-processed callback and on
	// item IDs that were already linked by another session.
	Saved    bool   `json:"saved"`
	RecordID *int64 `json:"record_id,omitempty"`
	ItemID   string `json:"item_id"`
}
