package domain

import "time"

// ExerciseMetrics is the per-(client, exercise) performance record row.
// Nil best fields mean no observation has been stored yet.
type ExerciseMetrics struct {
	TenantID           string
	ClientID           string
	ExerciseID         string
	EstimatedOneRepMax *float64
	BestWeight         *float64
	BestWeightReps     *int
	BestVolume         *float64
	BestVolumeWeight   *float64
	BestVolumeReps     *int
	UpdatedAt          time.Time
}

// PRResult reports the comparison outcome for one performance tuple.
type PRResult struct {
	ExerciseID string  `json:"exercise_id"`
	WeightPR   bool    `json:"weight_pr"`
	VolumePR   bool    `json:"volume_pr"`
	Weight     float64 `json:"weight"`
	Reps       int     `json:"reps"`
	Volume     float64 `json:"volume"`
}

// OneRepMaxAction describes what happened to the stored e1RM estimate.
type OneRepMaxAction string

const (
	OneRepMaxCalculated   OneRepMaxAction = "calculated"
	OneRepMaxUpdated      OneRepMaxAction = "updated"
	OneRepMaxInserted     OneRepMaxAction = "inserted"
	OneRepMaxKeptExisting OneRepMaxAction = "kept_existing"
)

// OneRepMaxOutcome reports the estimator result and how it merged with the
// stored value. A zero outcome means the block type does not track e1RM.
type OneRepMaxOutcome struct {
	Calculated *float64
	Stored     *float64
	Action     OneRepMaxAction
	IsNewPR    bool
}

// MergeOutcome is the result of comparing new tuples against stored metrics.
type MergeOutcome struct {
	// Rows is the union of touched rows to upsert, in first-touch order.
	Rows        []ExerciseMetrics
	Results     []PRResult
	AnyWeightPR bool
	AnyVolumePR bool
	OneRepMax   OneRepMaxOutcome
}

// MergeMetrics folds the extracted tuples (and, for the primary tuple, the
// e1RM estimate) into the existing metrics rows. It is a pure function of its
// inputs: no storage access, no partial effects. A weight PR is a strictly
// greater weight, or an equal weight at strictly more reps; a volume PR is a
// strictly greater weight×reps product. Later tuples in the same request
// compare against earlier ones, so duplicate submissions converge.
func MergeMetrics(
	tenantID, clientID string,
	existing []ExerciseMetrics,
	tuples []PerformanceTuple,
	primary *PerformanceTuple,
	estimated *float64,
	now time.Time,
) MergeOutcome {
	merged := make(map[string]*ExerciseMetrics, len(existing))
	for i := range existing {
		row := existing[i]
		merged[row.ExerciseID] = &row
	}

	var order []string
	touched := make(map[string]bool)
	touch := func(exerciseID string) *ExerciseMetrics {
		row, ok := merged[exerciseID]
		if !ok {
			row = &ExerciseMetrics{TenantID: tenantID, ClientID: clientID, ExerciseID: exerciseID}
			merged[exerciseID] = row
		}
		if !touched[exerciseID] {
			touched[exerciseID] = true
			order = append(order, exerciseID)
		}
		return row
	}

	outcome := MergeOutcome{}

	for _, t := range tuples {
		row := touch(t.ExerciseID)
		result := PRResult{
			ExerciseID: t.ExerciseID,
			Weight:     t.Weight,
			Reps:       t.Reps,
			Volume:     t.Volume(),
		}

		if isWeightPR(row, t) {
			result.WeightPR = true
			outcome.AnyWeightPR = true
			weight, reps := t.Weight, t.Reps
			row.BestWeight = &weight
			row.BestWeightReps = &reps
		}

		if row.BestVolume == nil || t.Volume() > *row.BestVolume {
			result.VolumePR = true
			outcome.AnyVolumePR = true
			volume, weight, reps := t.Volume(), t.Weight, t.Reps
			row.BestVolume = &volume
			row.BestVolumeWeight = &weight
			row.BestVolumeReps = &reps
		}

		row.UpdatedAt = now
		outcome.Results = append(outcome.Results, result)
	}

	if estimated != nil && primary != nil {
		row := touch(primary.ExerciseID)
		row.UpdatedAt = now
		outcome.OneRepMax = mergeOneRepMax(row, *estimated)
	}

	outcome.Rows = make([]ExerciseMetrics, 0, len(order))
	for _, id := range order {
		outcome.Rows = append(outcome.Rows, *merged[id])
	}
	return outcome
}

func isWeightPR(row *ExerciseMetrics, t PerformanceTuple) bool {
	if row.BestWeight == nil {
		return true
	}
	if t.Weight > *row.BestWeight {
		return true
	}
	if t.Weight == *row.BestWeight {
		return row.BestWeightReps == nil || t.Reps > *row.BestWeightReps
	}
	return false
}

func mergeOneRepMax(row *ExerciseMetrics, estimated float64) OneRepMaxOutcome {
	outcome := OneRepMaxOutcome{Calculated: &estimated, Action: OneRepMaxCalculated}
	switch {
	case row.EstimatedOneRepMax == nil:
		row.EstimatedOneRepMax = &estimated
		outcome.Action = OneRepMaxInserted
		outcome.IsNewPR = true
	case estimated > *row.EstimatedOneRepMax:
		row.EstimatedOneRepMax = &estimated
		outcome.Action = OneRepMaxUpdated
		outcome.IsNewPR = true
	default:
		outcome.Action = OneRepMaxKeptExisting
	}
	outcome.Stored = row.EstimatedOneRepMax
	return outcome
}
