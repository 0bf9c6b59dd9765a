// Package events defines the payloads published by the set-logging service.
package events

import "time"

// SetLogged represents the message emitted when a completed set is accepted.
type SetLogged struct {
	SetID        string    `json:"set_id"`
	TenantID     string    `json:"tenant_id"`
	ClientID     string    `json:"client_id"`
	WorkoutLogID string    `json:"workout_log_id"`
	BlockID      string    `json:"block_id"`
	BlockType    string    `json:"block_type"`
	CompletedAt  time.Time `json:"completed_at"`
}

// PRAchieved is emitted when a logged set establishes a new personal record.
type PRAchieved struct {
	TenantID   string    `json:"tenant_id"`
	ClientID   string    `json:"client_id"`
	ExerciseID string    `json:"exercise_id"`
	WeightPR   bool      `json:"weight_pr"`
	VolumePR   bool      `json:"volume_pr"`
	Weight     float64   `json:"weight"`
	Reps       int       `json:"reps"`
	Volume     float64   `json:"volume"`
	OccurredAt time.Time `json:"occurred_at"`
}
