package domain

import "time"

// WorkoutAssignment is a scheduled workout handed to a client. Sets can only
// be logged against assignments that still carry their training template.
type WorkoutAssignment struct {
	ID         string
	TenantID   string
	ClientID   string
	TemplateID *string
}

// WorkoutLog is the session-level container a set belongs to. A log is active
// while CompletedAt is nil; per (client, assignment) at most one log should be
// active at a time.
type WorkoutLog struct {
	ID           string
	TenantID     string
	ClientID     string
	AssignmentID string
	SessionID    *string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// SetLog is one completed set, immutable once inserted.
type SetLog struct {
	ID           string
	TenantID     string
	ClientID     string
	BlockID      string
	WorkoutLogID string
	BlockType    BlockType
	Payload      SetPayload
	CompletedAt  time.Time
}

// Cursor models the keyset pagination token for set history listings.
type Cursor struct {
	CompletedAt time.Time
	ID          string
}
