package domain

import (
	"encoding/json"
	"fmt"
)

// SetPayload is the closed union of block-type-specific set records. Exactly
// one implementation exists per BlockType; the builder and the performance
// extractor switch over all of them, so a new block type cannot be added
// without touching every site.
type SetPayload interface {
	Kind() BlockType
}

// StraightSetPayload records a simple weighted set.
type StraightSetPayload struct {
	ExerciseID string  `json:"exercise_id"`
	Weight     float64 `json:"weight"`
	Reps       int     `json:"reps"`
	SetNumber  int     `json:"set_number,omitempty"`
}

func (StraightSetPayload) Kind() BlockType { return BlockTypeStraightSet }

// SupersetPayload records two back-to-back efforts with no rest between.
type SupersetPayload struct {
	First  ExerciseEffort `json:"first"`
	Second ExerciseEffort `json:"second"`
}

func (SupersetPayload) Kind() BlockType { return BlockTypeSuperset }

// GiantSetPayload records an ordered run of three or more exercises.
type GiantSetPayload struct {
	Exercises []ExerciseEffort `json:"exercises"`
	Round     int              `json:"round,omitempty"`
}

func (GiantSetPayload) Kind() BlockType { return BlockTypeGiantSet }

// AMRAPPayload records max reps achieved inside a fixed time window.
type AMRAPPayload struct {
	ExerciseID  string   `json:"exercise_id"`
	Weight      *float64 `json:"weight,omitempty"`
	TotalReps   int      `json:"total_reps"`
	TargetReps  int      `json:"target_reps,omitempty"`
	DurationSec int      `json:"duration_sec"`
}

func (AMRAPPayload) Kind() BlockType { return BlockTypeAMRAP }

// DropSetPayload records an initial effort followed by a reduced-weight finisher.
type DropSetPayload struct {
	ExerciseID    string  `json:"exercise_id"`
	InitialWeight float64 `json:"initial_weight"`
	InitialReps   int     `json:"initial_reps"`
	FinalWeight   float64 `json:"final_weight"`
	FinalReps     int     `json:"final_reps"`
}

func (DropSetPayload) Kind() BlockType { return BlockTypeDropSet }

// ClusterSetPayload records one cluster of a clustered-repetition scheme.
type ClusterSetPayload struct {
	ExerciseID   string  `json:"exercise_id"`
	Weight       float64 `json:"weight"`
	Reps         int     `json:"reps"`
	ClusterIndex int     `json:"cluster_index,omitempty"`
}

func (ClusterSetPayload) Kind() BlockType { return BlockTypeClusterSet }

// RestPausePayload records an initial effort plus short-rest continuation reps.
type RestPausePayload struct {
	ExerciseID    string  `json:"exercise_id"`
	Weight        float64 `json:"weight"`
	InitialReps   int     `json:"initial_reps"`
	RepsAfterRest int     `json:"reps_after_rest,omitempty"`
	RestSec       int     `json:"rest_sec,omitempty"`
	MaxRests      int     `json:"max_rests,omitempty"`
}

func (RestPausePayload) Kind() BlockType { return BlockTypeRestPause }

// PreExhaustPayload records an isolation effort immediately followed by a
// compound effort for the same muscle group.
type PreExhaustPayload struct {
	Isolation ExerciseEffort `json:"isolation"`
	Compound  ExerciseEffort `json:"compound"`
}

func (PreExhaustPayload) Kind() BlockType { return BlockTypePreExhaust }

// EMOMPayload records one interval of an every-minute-on-the-minute block.
type EMOMPayload struct {
	ExerciseID    string   `json:"exercise_id"`
	Weight        *float64 `json:"weight,omitempty"`
	IntervalIndex int      `json:"interval_index"`
	Reps          int      `json:"reps"`
	DurationSec   int      `json:"duration_sec,omitempty"`
}

func (EMOMPayload) Kind() BlockType { return BlockTypeEMOM }

// TabataPayload records rounds completed over a fixed work/rest protocol.
type TabataPayload struct {
	RoundsCompleted int `json:"rounds_completed"`
	DurationSec     int `json:"duration_sec"`
}

func (TabataPayload) Kind() BlockType { return BlockTypeTabata }

// ForTimePayload records a fixed rep task raced against the clock.
type ForTimePayload struct {
	ExerciseID  string   `json:"exercise_id"`
	Weight      *float64 `json:"weight,omitempty"`
	TotalReps   int      `json:"total_reps"`
	TimeSec     int      `json:"time_sec"`
	TimeCapSec  int      `json:"time_cap_sec,omitempty"`
	TargetReps  int      `json:"target_reps,omitempty"`
}

func (ForTimePayload) Kind() BlockType { return BlockTypeForTime }

// HeartRateZonePayload records effort gated by heart-rate zone rather than load.
type HeartRateZonePayload struct {
	TargetZone   int `json:"target_zone,omitempty"`
	AvgHeartRate int `json:"avg_heart_rate,omitempty"`
	DurationSec  int `json:"duration_sec"`
}

func (HeartRateZonePayload) Kind() BlockType { return BlockTypeHeartRateZone }

// UnmarshalPayload decodes a persisted payload document back into its typed form.
func UnmarshalPayload(bt BlockType, raw []byte) (SetPayload, error) {
	decode := func(target any) error {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decode %s payload: %w", bt, err)
		}
		return nil
	}

	switch bt {
	case BlockTypeStraightSet:
		var p StraightSetPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeSuperset:
		var p SupersetPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeGiantSet:
		var p GiantSetPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeAMRAP:
		var p AMRAPPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeDropSet:
		var p DropSetPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeClusterSet:
		var p ClusterSetPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeRestPause:
		var p RestPausePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypePreExhaust:
		var p PreExhaustPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeEMOM:
		var p EMOMPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeTabata:
		var p TabataPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeForTime:
		var p ForTimePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case BlockTypeHeartRateZone:
		var p HeartRateZonePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, &UnsupportedBlockTypeError{Tag: string(bt)}
	}
}
