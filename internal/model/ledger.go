package model

import "time"

// LedgerEntry is an immutable record of one state change of a book.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	BookID       int64     `json:"book_id"`
	ActorID      int64     `json:"actor_id"`
	Kind         string    `json:"kind"`
	FromLocation *string   `json:"from_location"`
	ToLocation   *string   `json:"to_location"`
	FromStatus   *string   `json:"from_status,omitempty"`
	ToStatus     *string   `json:"to_status,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// Joined fields (not always populated).
	BookTitle     string `json:"book_title,omitempty"`
	ActorUsername string `json:"actor_username,omitempty"`
}

// Ledger entry kinds.
const (
	EntryKindAddition = "addition"
	EntryKindMovement = "movement"
	EntryKindSale     = "sale"
	EntryKindStatus   = "status"
)

// ValidEntryKind reports whether k is a known ledger entry kind.
func ValidEntryKind(k string) bool {
	switch k {
	case EntryKindAddition, EntryKindMovement, EntryKindSale, EntryKindStatus:
		return true
	}
	return false
}

// LedgerFilter narrows ledger listings. Zero values are unconstrained;
// From and To are inclusive.
type LedgerFilter struct {
	BookID  int64
	Kind    string
	ActorID int64
	From    time.Time
	To      time.Time
}
