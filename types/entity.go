package types

import "time"

// Entity carries the timestamps every persisted Mint record has.
// Timestamps are UTC.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both timestamps with now.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch marks the record as modified now.
func (e *Entity) Touch() { e.UpdatedAt = time.Now().UTC() }

// CreatedBefore reports whether the record predates t.
func (e Entity) CreatedBefore(t time.Time) bool { return e.CreatedAt.Before(t) }
