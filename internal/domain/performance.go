package domain

// PerformanceTuple is one (exercise, weight, reps) observation derived from a
// completed set. Tuples feed PR detection; they are never persisted directly.
type PerformanceTuple struct {
	ExerciseID string
	Weight     float64
	Reps       int
}

// Volume is the load moved across the tuple.
func (t PerformanceTuple) Volume() float64 {
	return t.Weight * float64(t.Reps)
}

// EstimateOneRepMax computes the Epley estimate for the maximum
// single-repetition load implied by a submaximal weight/reps pair.
func EstimateOneRepMax(weight float64, reps int) float64 {
	return weight * (1 + 0.0333*float64(reps))
}

// ExtractPerformance derives the full tuple list for PR purposes from a built
// payload. It is a superset of the builder's primary tuple: paired and
// multi-exercise block types yield one tuple per sub-exercise, timed protocols
// yield a tuple only when a weight was reported, and round- or heart-rate-based
// protocols yield none. Tuples with a missing exercise or a non-positive
// weight or rep count are discarded rather than emitted.
func ExtractPerformance(payload SetPayload) []PerformanceTuple {
	switch p := payload.(type) {
	case StraightSetPayload:
		return tuples(tuple(p.ExerciseID, p.Weight, p.Reps))
	case SupersetPayload:
		return tuples(effortTuple(p.First), effortTuple(p.Second))
	case GiantSetPayload:
		out := make([]PerformanceTuple, 0, len(p.Exercises))
		for _, effort := range p.Exercises {
			if t := effortTuple(effort); t != nil {
				out = append(out, *t)
			}
		}
		return out
	case AMRAPPayload:
		if p.Weight == nil {
			return nil
		}
		return tuples(tuple(p.ExerciseID, *p.Weight, achievedOrTarget(p.TotalReps, p.TargetReps)))
	case DropSetPayload:
		return tuples(tuple(p.ExerciseID, p.InitialWeight, p.InitialReps))
	case ClusterSetPayload:
		return tuples(tuple(p.ExerciseID, p.Weight, p.Reps))
	case RestPausePayload:
		return tuples(tuple(p.ExerciseID, p.Weight, p.InitialReps))
	case PreExhaustPayload:
		return tuples(effortTuple(p.Isolation), effortTuple(p.Compound))
	case EMOMPayload:
		if p.Weight == nil {
			return nil
		}
		return tuples(tuple(p.ExerciseID, *p.Weight, p.Reps))
	case ForTimePayload:
		if p.Weight == nil {
			return nil
		}
		return tuples(tuple(p.ExerciseID, *p.Weight, achievedOrTarget(p.TotalReps, p.TargetReps)))
	case TabataPayload, HeartRateZonePayload:
		return nil
	default:
		return nil
	}
}

func achievedOrTarget(achieved, target int) int {
	if achieved > 0 {
		return achieved
	}
	return target
}

func effortTuple(e ExerciseEffort) *PerformanceTuple {
	return tuple(e.ExerciseID, e.Weight, e.Reps)
}

func tuple(exerciseID string, weight float64, reps int) *PerformanceTuple {
	if exerciseID == "" || weight <= 0 || reps <= 0 {
		return nil
	}
	return &PerformanceTuple{ExerciseID: exerciseID, Weight: weight, Reps: reps}
}

func tuples(candidates ...*PerformanceTuple) []PerformanceTuple {
	out := make([]PerformanceTuple, 0, len(candidates))
	for _, t := range candidates {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}
