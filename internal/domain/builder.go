package domain

import "fmt"

// BuildSetPayload turns a normalized event into the block-type-specific set
// record, validating the sub-fields that block type requires. It also returns
// the primary performance tuple used for one-rep-max tracking, or nil for
// block types without a single dominant weighted effort.
func BuildSetPayload(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	switch ev.BlockType {
	case BlockTypeStraightSet:
		return buildStraightSet(ev)
	case BlockTypeSuperset:
		return buildSuperset(ev)
	case BlockTypeGiantSet:
		return buildGiantSet(ev)
	case BlockTypeAMRAP:
		return buildAMRAP(ev)
	case BlockTypeDropSet:
		return buildDropSet(ev)
	case BlockTypeClusterSet:
		return buildClusterSet(ev)
	case BlockTypeRestPause:
		return buildRestPause(ev)
	case BlockTypePreExhaust:
		return buildPreExhaust(ev)
	case BlockTypeEMOM:
		return buildEMOM(ev)
	case BlockTypeTabata:
		return buildTabata(ev)
	case BlockTypeForTime:
		return buildForTime(ev)
	case BlockTypeHeartRateZone:
		return buildHeartRateZone(ev)
	default:
		return nil, nil, &UnsupportedBlockTypeError{Tag: string(ev.BlockType)}
	}
}

func buildStraightSet(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	weight, err := requirePositiveFloat(ev.Weight, "weight")
	if err != nil {
		return nil, nil, err
	}
	reps, err := requirePositiveInt(ev.Reps, "reps")
	if err != nil {
		return nil, nil, err
	}
	payload := StraightSetPayload{
		ExerciseID: ev.ExerciseID,
		Weight:     weight,
		Reps:       reps,
		SetNumber:  intOrZero(ev.SetNumber),
	}
	primary := &PerformanceTuple{ExerciseID: ev.ExerciseID, Weight: weight, Reps: reps}
	return payload, primary, nil
}

func buildSuperset(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	first, err := requireEffort(ev.ExerciseID, ev.Weight, ev.Reps, "first")
	if err != nil {
		return nil, nil, err
	}
	second, err := requireEffort(ev.SecondExerciseID, ev.SecondWeight, ev.SecondReps, "second")
	if err != nil {
		return nil, nil, err
	}
	payload := SupersetPayload{First: first, Second: second}
	primary := &PerformanceTuple{ExerciseID: first.ExerciseID, Weight: first.Weight, Reps: first.Reps}
	return payload, primary, nil
}

func buildGiantSet(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if len(ev.Entries) == 0 {
		return nil, nil, &MissingFieldError{Field: "exercises"}
	}
	exercises := make([]ExerciseEffort, 0, len(ev.Entries))
	for i, entry := range ev.Entries {
		effort, err := requireEffort(entry.ExerciseID, entry.Weight, entry.Reps, giantEntryField(i))
		if err != nil {
			return nil, nil, err
		}
		exercises = append(exercises, effort)
	}
	payload := GiantSetPayload{Exercises: exercises, Round: intOrZero(ev.Round)}
	// No single dominant effort across a giant set.
	return payload, nil, nil
}

func buildAMRAP(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	totalReps, err := requirePositiveInt(ev.TotalReps, "total_reps")
	if err != nil {
		return nil, nil, err
	}
	duration, err := requirePositiveInt(ev.DurationSec, "duration_sec")
	if err != nil {
		return nil, nil, err
	}
	payload := AMRAPPayload{
		ExerciseID:  ev.ExerciseID,
		Weight:      ev.Weight,
		TotalReps:   totalReps,
		TargetReps:  intOrZero(ev.TargetReps),
		DurationSec: duration,
	}
	return payload, nil, nil
}

func buildDropSet(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	initialWeight, err := requirePositiveFloat(ev.Weight, "initial_weight")
	if err != nil {
		return nil, nil, err
	}
	initialReps, err := requirePositiveInt(ev.Reps, "initial_reps")
	if err != nil {
		return nil, nil, err
	}
	finalWeight, err := requirePositiveFloat(ev.FinalWeight, "final_weight")
	if err != nil {
		return nil, nil, err
	}
	finalReps, err := requirePositiveInt(ev.FinalReps, "final_reps")
	if err != nil {
		return nil, nil, err
	}
	payload := DropSetPayload{
		ExerciseID:    ev.ExerciseID,
		InitialWeight: initialWeight,
		InitialReps:   initialReps,
		FinalWeight:   finalWeight,
		FinalReps:     finalReps,
	}
	primary := &PerformanceTuple{ExerciseID: ev.ExerciseID, Weight: initialWeight, Reps: initialReps}
	return payload, primary, nil
}

func buildClusterSet(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	weight, err := requirePositiveFloat(ev.Weight, "weight")
	if err != nil {
		return nil, nil, err
	}
	reps, err := requirePositiveInt(ev.Reps, "reps")
	if err != nil {
		return nil, nil, err
	}
	payload := ClusterSetPayload{
		ExerciseID:   ev.ExerciseID,
		Weight:       weight,
		Reps:         reps,
		ClusterIndex: intOrZero(ev.ClusterIndex),
	}
	primary := &PerformanceTuple{ExerciseID: ev.ExerciseID, Weight: weight, Reps: reps}
	return payload, primary, nil
}

func buildRestPause(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	weight, err := requirePositiveFloat(ev.Weight, "weight")
	if err != nil {
		return nil, nil, err
	}
	initialReps, err := requirePositiveInt(ev.Reps, "reps")
	if err != nil {
		return nil, nil, err
	}
	payload := RestPausePayload{
		ExerciseID:    ev.ExerciseID,
		Weight:        weight,
		InitialReps:   initialReps,
		RepsAfterRest: intOrZero(ev.RepsAfterRest),
		RestSec:       intOrZero(ev.RestSec),
		MaxRests:      intOrZero(ev.MaxRests),
	}
	primary := &PerformanceTuple{ExerciseID: ev.ExerciseID, Weight: weight, Reps: initialReps}
	return payload, primary, nil
}

func buildPreExhaust(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	isolation, err := requireEffort(ev.ExerciseID, ev.Weight, ev.Reps, "isolation")
	if err != nil {
		return nil, nil, err
	}
	compound, err := requireEffort(ev.SecondExerciseID, ev.SecondWeight, ev.SecondReps, "compound")
	if err != nil {
		return nil, nil, err
	}
	payload := PreExhaustPayload{Isolation: isolation, Compound: compound}
	return payload, nil, nil
}

func buildEMOM(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	interval, err := requirePositiveInt(ev.IntervalIndex, "interval_index")
	if err != nil {
		return nil, nil, err
	}
	reps, err := requirePositiveInt(ev.Reps, "reps")
	if err != nil {
		return nil, nil, err
	}
	payload := EMOMPayload{
		ExerciseID:    ev.ExerciseID,
		Weight:        ev.Weight,
		IntervalIndex: interval,
		Reps:          reps,
		DurationSec:   intOrZero(ev.DurationSec),
	}
	return payload, nil, nil
}

func buildTabata(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	rounds, err := requirePositiveInt(ev.RoundsCompleted, "rounds_completed")
	if err != nil {
		return nil, nil, err
	}
	duration, err := requirePositiveInt(ev.DurationSec, "duration_sec")
	if err != nil {
		return nil, nil, err
	}
	return TabataPayload{RoundsCompleted: rounds, DurationSec: duration}, nil, nil
}

func buildForTime(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	if ev.ExerciseID == "" {
		return nil, nil, &MissingFieldError{Field: "exercise_id"}
	}
	totalReps, err := requirePositiveInt(ev.TotalReps, "total_reps")
	if err != nil {
		return nil, nil, err
	}
	timeSec, err := requirePositiveInt(ev.DurationSec, "duration_sec")
	if err != nil {
		return nil, nil, err
	}
	payload := ForTimePayload{
		ExerciseID: ev.ExerciseID,
		Weight:     ev.Weight,
		TotalReps:  totalReps,
		TimeSec:    timeSec,
		TimeCapSec: intOrZero(ev.TimeCapSec),
		TargetReps: intOrZero(ev.TargetReps),
	}
	return payload, nil, nil
}

func buildHeartRateZone(ev *SetCompletionEvent) (SetPayload, *PerformanceTuple, error) {
	duration, err := requirePositiveInt(ev.DurationSec, "duration_sec")
	if err != nil {
		return nil, nil, err
	}
	payload := HeartRateZonePayload{
		TargetZone:   intOrZero(ev.TargetZone),
		AvgHeartRate: intOrZero(ev.AvgHeartRate),
		DurationSec:  duration,
	}
	return payload, nil, nil
}

func requireEffort(exerciseID string, weight *float64, reps *int, prefix string) (ExerciseEffort, error) {
	if exerciseID == "" {
		return ExerciseEffort{}, &MissingFieldError{Field: prefix + ".exercise_id"}
	}
	w, err := requirePositiveFloat(weight, prefix+".weight")
	if err != nil {
		return ExerciseEffort{}, err
	}
	r, err := requirePositiveInt(reps, prefix+".reps")
	if err != nil {
		return ExerciseEffort{}, err
	}
	return ExerciseEffort{ExerciseID: exerciseID, Weight: w, Reps: r}, nil
}

func requirePositiveFloat(value *float64, field string) (float64, error) {
	if value == nil || *value <= 0 {
		return 0, &MissingFieldError{Field: field}
	}
	return *value, nil
}

func requirePositiveInt(value *int, field string) (int, error) {
	if value == nil || *value <= 0 {
		return 0, &MissingFieldError{Field: field}
	}
	return *value, nil
}

func intOrZero(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func giantEntryField(index int) string {
	return fmt.Sprintf("exercises[%d]", index)
}
