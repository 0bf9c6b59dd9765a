package domain

import "time"

// ExerciseEffort is one exercise/weight/reps triple inside a multi-exercise payload.
type ExerciseEffort struct {
	ExerciseID string  `json:"exercise_id"`
	Weight     float64 `json:"weight"`
	Reps       int     `json:"reps"`
}

// EffortInput is an effort entry as received from the API, before the block
// builder has validated it. Absent numeric fields stay nil.
type EffortInput struct {
	ExerciseID string
	Weight     *float64
	Reps       *int
}

// SetCompletionEvent is the normalized form of one "set completed" submission.
// Numeric fields the client omitted or sent unparseable arrive as nil; the
// block payload builder decides per block type which of them are required.
type SetCompletionEvent struct {
	TenantID            string
	ClientID            string
	BlockID             string
	BlockType           BlockType
	WorkoutAssignmentID string
	WorkoutLogID        string
	SessionID           string
	TemplateExerciseID  string

	ExerciseID string
	Weight     *float64
	Reps       *int
	SetNumber  *int

	// Second effort for superset (second exercise) and pre_exhaust (compound).
	SecondExerciseID string
	SecondWeight     *float64
	SecondReps       *int

	// Giant set entries, in performed order.
	Entries []EffortInput

	TotalReps       *int
	TargetReps      *int
	DurationSec     *int
	Round           *int
	ClusterIndex    *int
	IntervalIndex   *int
	RepsAfterRest   *int
	RestSec         *int
	MaxRests        *int
	FinalWeight     *float64
	FinalReps       *int
	TimeCapSec      *int
	RoundsCompleted *int
	TargetZone      *int
	AvgHeartRate    *int

	CompletedAt time.Time
}
