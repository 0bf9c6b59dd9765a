// Package domain defines the business logic for the set logging service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Repository captures persistence operations. All reads and writes are
// tenant-scoped; implementations must not leak rows across tenants.
type Repository interface {
	// GetWorkoutAssignment returns nil without error when the assignment does not exist.
	GetWorkoutAssignment(ctx context.Context, tenantID, assignmentID string) (*WorkoutAssignment, error)
	// FindActiveWorkoutLog returns the active (not completed) log for the
	// (client, assignment) pair. When sessionID is non-empty a log already
	// linked to that session is preferred over a generic active one.
	FindActiveWorkoutLog(ctx context.Context, tenantID, clientID, assignmentID, sessionID string) (*WorkoutLog, error)
	// FindActiveUnlinkedWorkoutLog returns an active log with no session linkage.
	FindActiveUnlinkedWorkoutLog(ctx context.Context, tenantID, clientID, assignmentID string) (*WorkoutLog, error)
	LinkSession(ctx context.Context, tenantID, workoutLogID, sessionID string) error
	// CreateWorkoutLog returns ErrActiveLogConflict when another active log
	// for the same (client, assignment) pair already exists.
	CreateWorkoutLog(ctx context.Context, workoutLog WorkoutLog) error
	InsertSetLog(ctx context.Context, setLog SetLog) error
	GetSetLog(ctx context.Context, tenantID, clientID, setLogID string) (*SetLog, error)
	ListSetLogs(ctx context.Context, tenantID, clientID string, cursor *Cursor, limit int) ([]SetLog, *Cursor, error)
	GetExerciseMetrics(ctx context.Context, tenantID, clientID string, exerciseIDs []string) ([]ExerciseMetrics, error)
	// UpsertExerciseMetrics persists the merged rows in one batch. The prs
	// slice carries the detected records so implementations can emit
	// pr.achieved events alongside the write.
	UpsertExerciseMetrics(ctx context.Context, tenantID, clientID string, rows []ExerciseMetrics, prs []PRResult) error
}

// Service orchestrates the set completion workflow.
type Service struct {
	repo   Repository
	logger *log.Logger
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger used for non-fatal failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: log.New(log.Writer(), "[setlog] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogSetResult is the composed outcome of one set completion.
type LogSetResult struct {
	SetLog         SetLog
	OneRepMax      OneRepMaxOutcome
	Results        []PRResult
	AnyWeightPR    bool
	AnyVolumePR    bool
	MetricsWarning string
}

// LogSet records one completed set: it resolves the enclosing workout log,
// persists the block-type-specific set record, and folds the derived
// performance tuples into the client's exercise metrics. Everything up to and
// including the set insert is fail-fast; the metrics stage is best-effort and
// degrades to a response warning, because by then the set itself is durable.
func (s *Service) LogSet(ctx context.Context, ev SetCompletionEvent) (*LogSetResult, error) {
	workoutLogID, err := s.resolveWorkoutLog(ctx, &ev)
	if err != nil {
		return nil, err
	}

	payload, primary, err := BuildSetPayload(&ev)
	if err != nil {
		return nil, err
	}

	var estimated *float64
	if primary != nil && ev.BlockType.tracksOneRepMax() {
		value := EstimateOneRepMax(primary.Weight, primary.Reps)
		estimated = &value
	}

	completedAt := ev.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	setLog := SetLog{
		ID:           uuid.NewString(),
		TenantID:     ev.TenantID,
		ClientID:     ev.ClientID,
		BlockID:      ev.BlockID,
		WorkoutLogID: workoutLogID,
		BlockType:    ev.BlockType,
		Payload:      payload,
		CompletedAt:  completedAt,
	}
	if err := s.repo.InsertSetLog(ctx, setLog); err != nil {
		return nil, fmt.Errorf("insert set log: %w", err)
	}

	result := &LogSetResult{SetLog: setLog}
	s.updateMetrics(ctx, &ev, payload, primary, estimated, result)
	return result, nil
}

// updateMetrics runs the PR/metrics stage. Failures here never fail the
// request; they are logged and surfaced via result.MetricsWarning.
func (s *Service) updateMetrics(
	ctx context.Context,
	ev *SetCompletionEvent,
	payload SetPayload,
	primary *PerformanceTuple,
	estimated *float64,
	result *LogSetResult,
) {
	tuples := ExtractPerformance(payload)
	if len(tuples) == 0 {
		return
	}

	exerciseIDs := make([]string, 0, len(tuples))
	seen := make(map[string]bool, len(tuples))
	for _, t := range tuples {
		if !seen[t.ExerciseID] {
			seen[t.ExerciseID] = true
			exerciseIDs = append(exerciseIDs, t.ExerciseID)
		}
	}

	existing, err := s.repo.GetExerciseMetrics(ctx, ev.TenantID, ev.ClientID, exerciseIDs)
	if err != nil {
		s.logger.Printf("metrics fetch failed (client=%s): %v", ev.ClientID, err)
		result.MetricsWarning = "exercise metrics could not be loaded; PR tracking skipped"
		if estimated != nil {
			result.OneRepMax = OneRepMaxOutcome{Calculated: estimated, Action: OneRepMaxCalculated}
		}
		return
	}

	outcome := MergeMetrics(ev.TenantID, ev.ClientID, existing, tuples, primary, estimated, time.Now().UTC())
	result.Results = outcome.Results
	result.AnyWeightPR = outcome.AnyWeightPR
	result.AnyVolumePR = outcome.AnyVolumePR
	result.OneRepMax = outcome.OneRepMax

	if err := s.repo.UpsertExerciseMetrics(ctx, ev.TenantID, ev.ClientID, outcome.Rows, outcome.Results); err != nil {
		s.logger.Printf("metrics upsert failed (client=%s): %v", ev.ClientID, err)
		result.MetricsWarning = "exercise metrics could not be saved; the set itself was recorded"
		if estimated != nil {
			result.OneRepMax = OneRepMaxOutcome{Calculated: estimated, Action: OneRepMaxCalculated}
		} else {
			result.OneRepMax = OneRepMaxOutcome{}
		}
	}
}

// resolveWorkoutLog finds or creates the workout log the new set attaches to.
// The search, link, and create steps stay sequential: each depends on the
// outcome of the previous one.
func (s *Service) resolveWorkoutLog(ctx context.Context, ev *SetCompletionEvent) (string, error) {
	if ev.WorkoutLogID != "" {
		return ev.WorkoutLogID, nil
	}
	if ev.WorkoutAssignmentID == "" {
		return "", &MissingFieldError{Field: "workout_assignment_id"}
	}

	assignment, err := s.repo.GetWorkoutAssignment(ctx, ev.TenantID, ev.WorkoutAssignmentID)
	if err != nil {
		return "", fmt.Errorf("load workout assignment: %w", err)
	}
	if assignment == nil {
		return "", ErrInvalidState
	}
	if assignment.ClientID != ev.ClientID {
		return "", ErrForbidden
	}
	if assignment.TemplateID == nil || *assignment.TemplateID == "" {
		return "", ErrInvalidState
	}

	active, err := s.repo.FindActiveWorkoutLog(ctx, ev.TenantID, ev.ClientID, ev.WorkoutAssignmentID, ev.SessionID)
	if err != nil {
		return "", fmt.Errorf("find active workout log: %w", err)
	}
	if active != nil {
		return active.ID, nil
	}

	// A session may have been started before its id was known; adopt an
	// unlinked active log instead of creating a second one.
	if ev.SessionID != "" {
		unlinked, err := s.repo.FindActiveUnlinkedWorkoutLog(ctx, ev.TenantID, ev.ClientID, ev.WorkoutAssignmentID)
		if err != nil {
			return "", fmt.Errorf("find unlinked workout log: %w", err)
		}
		if unlinked != nil {
			if err := s.repo.LinkSession(ctx, ev.TenantID, unlinked.ID, ev.SessionID); err != nil {
				return "", fmt.Errorf("link session: %w", err)
			}
			return unlinked.ID, nil
		}
	}

	workoutLog := WorkoutLog{
		ID:           uuid.NewString(),
		TenantID:     ev.TenantID,
		ClientID:     ev.ClientID,
		AssignmentID: ev.WorkoutAssignmentID,
		StartedAt:    time.Now().UTC(),
	}
	if ev.SessionID != "" {
		sessionID := ev.SessionID
		workoutLog.SessionID = &sessionID
	}

	err = s.repo.CreateWorkoutLog(ctx, workoutLog)
	if err == nil {
		return workoutLog.ID, nil
	}
	if !errors.Is(err, ErrActiveLogConflict) {
		return "", fmt.Errorf("create workout log: %w", err)
	}

	// Lost the create race; the unique active index guarantees a winner exists.
	winner, err := s.repo.FindActiveWorkoutLog(ctx, ev.TenantID, ev.ClientID, ev.WorkoutAssignmentID, ev.SessionID)
	if err != nil {
		return "", fmt.Errorf("re-query after create conflict: %w", err)
	}
	if winner == nil {
		return "", fmt.Errorf("create workout log: %w", ErrActiveLogConflict)
	}
	return winner.ID, nil
}

// GetSetLog fetches a single set log for the client.
func (s *Service) GetSetLog(ctx context.Context, tenantID, clientID, setLogID string) (*SetLog, error) {
	setLog, err := s.repo.GetSetLog(ctx, tenantID, clientID, setLogID)
	if err != nil {
		return nil, err
	}
	if setLog == nil {
		return nil, ErrSetLogNotFound
	}
	return setLog, nil
}

// ListSetLogs fetches set history with cursor pagination.
func (s *Service) ListSetLogs(ctx context.Context, tenantID, clientID string, cursor *Cursor, limit int) ([]SetLog, *Cursor, error) {
	return s.repo.ListSetLogs(ctx, tenantID, clientID, cursor, limit)
}
