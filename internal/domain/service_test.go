package domain

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

func testService(repo Repository) *Service {
	return NewService(repo, WithLogger(log.New(io.Discard, "", 0)))
}

func baseEvent() SetCompletionEvent {
	return SetCompletionEvent{
		TenantID:            "tenant-1",
		ClientID:            "client-1",
		BlockID:             "block-1",
		BlockType:           BlockTypeStraightSet,
		WorkoutAssignmentID: "assignment-1",
		ExerciseID:          "bench",
		Weight:              ptrFloat(100),
		Reps:                ptrInt(5),
	}
}

func TestLogSetWithExplicitWorkoutLog(t *testing.T) {
	repo := &stubRepo{}
	svc := testService(repo)

	ev := baseEvent()
	ev.WorkoutAssignmentID = ""
	ev.WorkoutLogID = "log-42"

	result, err := svc.LogSet(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, "log-42", result.SetLog.WorkoutLogID)
	require.Zero(t, repo.createCalls, "explicit log id skips find-or-create")
	require.NotEmpty(t, result.SetLog.ID)
	require.Equal(t, BlockTypeStraightSet, result.SetLog.BlockType)
}

func TestLogSetRequiresAssignmentWithoutLogID(t *testing.T) {
	svc := testService(&stubRepo{})

	ev := baseEvent()
	ev.WorkoutAssignmentID = ""

	_, err := svc.LogSet(context.Background(), ev)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "workout_assignment_id", missing.Field)
}

func TestLogSetRejectsUnknownAssignment(t *testing.T) {
	svc := testService(&stubRepo{})

	_, err := svc.LogSet(context.Background(), baseEvent())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLogSetRejectsForeignAssignment(t *testing.T) {
	repo := &stubRepo{assignment: &WorkoutAssignment{
		ID: "assignment-1", TenantID: "tenant-1", ClientID: "someone-else", TemplateID: ptrString("tmpl-1"),
	}}
	svc := testService(repo)

	_, err := svc.LogSet(context.Background(), baseEvent())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLogSetRejectsAssignmentWithoutTemplate(t *testing.T) {
	repo := &stubRepo{assignment: &WorkoutAssignment{
		ID: "assignment-1", TenantID: "tenant-1", ClientID: "client-1",
	}}
	svc := testService(repo)

	_, err := svc.LogSet(context.Background(), baseEvent())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLogSetReusesActiveWorkoutLog(t *testing.T) {
	repo := &stubRepo{
		assignment: validAssignment(),
		activeLog:  &WorkoutLog{ID: "log-7", TenantID: "tenant-1", ClientID: "client-1", AssignmentID: "assignment-1"},
	}
	svc := testService(repo)

	result, err := svc.LogSet(context.Background(), baseEvent())
	require.NoError(t, err)
	require.Equal(t, "log-7", result.SetLog.WorkoutLogID)
	require.Zero(t, repo.createCalls)
}

func TestLogSetAdoptsUnlinkedLogForSession(t *testing.T) {
	repo := &stubRepo{
		assignment:  validAssignment(),
		unlinkedLog: &WorkoutLog{ID: "log-9", TenantID: "tenant-1", ClientID: "client-1", AssignmentID: "assignment-1"},
	}
	svc := testService(repo)

	ev := baseEvent()
	ev.SessionID = "b7a8b5f0-62cc-4c01-9a4e-d4c0f8b0a111"

	result, err := svc.LogSet(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, "log-9", result.SetLog.WorkoutLogID)
	require.Equal(t, "log-9", repo.linkedLogID)
	require.Equal(t, ev.SessionID, repo.linkedSessionID)
	require.Zero(t, repo.createCalls)
}

func TestLogSetCreatesWorkoutLog(t *testing.T) {
	repo := &stubRepo{assignment: validAssignment()}
	svc := testService(repo)

	result, err := svc.LogSet(context.Background(), baseEvent())
	require.NoError(t, err)
	require.Equal(t, 1, repo.createCalls)
	require.Equal(t, repo.created.ID, result.SetLog.WorkoutLogID)
	require.Nil(t, repo.created.SessionID)
}

func TestLogSetCreateConflictAdoptsWinner(t *testing.T) {
	repo := &stubRepo{
		assignment: validAssignment(),
		createErr:  ErrActiveLogConflict,
		// After the failed create, the winner becomes visible.
		activeLogAfterConflict: &WorkoutLog{ID: "winner-1", TenantID: "tenant-1", ClientID: "client-1", AssignmentID: "assignment-1"},
	}
	svc := testService(repo)

	result, err := svc.LogSet(context.Background(), baseEvent())
	require.NoError(t, err)
	require.Equal(t, "winner-1", result.SetLog.WorkoutLogID)
}

func TestLogSetInsertFailureIsFatal(t *testing.T) {
	repo := &stubRepo{assignment: validAssignment(), insertErr: errors.New("disk full")}
	svc := testService(repo)

	_, err := svc.LogSet(context.Background(), baseEvent())
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert set log")
}

func TestLogSetComputesOneRepMaxAndPRs(t *testing.T) {
	repo := &stubRepo{assignment: validAssignment()}
	svc := testService(repo)

	result, err := svc.LogSet(context.Background(), baseEvent())
	require.NoError(t, err)

	require.Empty(t, result.MetricsWarning)
	require.NotNil(t, result.OneRepMax.Calculated)
	require.InDelta(t, 116.65, *result.OneRepMax.Calculated, 0.0001)
	require.Equal(t, OneRepMaxInserted, result.OneRepMax.Action)
	require.True(t, result.AnyWeightPR)
	require.True(t, result.AnyVolumePR)
	require.Len(t, result.Results, 1)
	require.Len(t, repo.upsertedRows, 1)
	require.Len(t, repo.upsertedPRs, 1)
}

func TestLogSetNoOneRepMaxForNonTrackingBlock(t *testing.T) {
	repo := &stubRepo{assignment: validAssignment()}
	svc := testService(repo)

	ev := baseEvent()
	ev.BlockType = BlockTypePreExhaust
	ev.SecondExerciseID = "squat"
	ev.SecondWeight = ptrFloat(120)
	ev.SecondReps = ptrInt(8)

	result, err := svc.LogSet(context.Background(), ev)
	require.NoError(t, err)
	require.Nil(t, result.OneRepMax.Calculated, "paired accessory work does not estimate 1RM")
	require.Len(t, result.Results, 2, "both efforts still feed PR tracking")
}

func TestLogSetMetricsFetchFailureDegrades(t *testing.T) {
	repo := &stubRepo{assignment: validAssignment(), getMetricsErr: errors.New("connection reset")}
	svc := testService(repo)

	result, err := svc.LogSet(context.Background(), baseEvent())
	require.NoError(t, err, "set insert already succeeded")
	require.NotEmpty(t, result.MetricsWarning)
	require.Empty(t, result.Results)
	require.False(t, result.AnyWeightPR)
	require.NotNil(t, result.OneRepMax.Calculated, "estimate still reported")
	require.Equal(t, OneRepMaxCalculated, result.OneRepMax.Action)
	require.Nil(t, result.OneRepMax.Stored)
}

func TestLogSetMetricsUpsertFailureDegrades(t *testing.T) {
	repo := &stubRepo{assignment: validAssignment(), upsertErr: errors.New("deadlock")}
	svc := testService(repo)

	result, err := svc.LogSet(context.Background(), baseEvent())
	require.NoError(t, err)
	require.NotEmpty(t, result.MetricsWarning)
	require.NotNil(t, result.OneRepMax.Calculated)
	require.Equal(t, OneRepMaxCalculated, result.OneRepMax.Action, "merge outcome reverts when the write fails")
	require.False(t, result.OneRepMax.IsNewPR)
}

func TestGetSetLogNotFound(t *testing.T) {
	svc := testService(&stubRepo{})

	_, err := svc.GetSetLog(context.Background(), "tenant-1", "client-1", "missing")
	require.ErrorIs(t, err, ErrSetLogNotFound)
}

func validAssignment() *WorkoutAssignment {
	return &WorkoutAssignment{
		ID:         "assignment-1",
		TenantID:   "tenant-1",
		ClientID:   "client-1",
		TemplateID: ptrString("tmpl-1"),
	}
}

func ptrString(v string) *string { return &v }

type stubRepo struct {
	assignment             *WorkoutAssignment
	activeLog              *WorkoutLog
	activeLogAfterConflict *WorkoutLog
	unlinkedLog            *WorkoutLog
	metrics                []ExerciseMetrics

	createErr     error
	insertErr     error
	getMetricsErr error
	upsertErr     error

	createCalls     int
	created         WorkoutLog
	inserted        []SetLog
	linkedLogID     string
	linkedSessionID string
	upsertedRows    []ExerciseMetrics
	upsertedPRs     []PRResult
}

func (s *stubRepo) GetWorkoutAssignment(_ context.Context, tenantID, assignmentID string) (*WorkoutAssignment, error) {
	if s.assignment == nil || s.assignment.ID != assignmentID || s.assignment.TenantID != tenantID {
		return nil, nil
	}
	return s.assignment, nil
}

func (s *stubRepo) FindActiveWorkoutLog(context.Context, string, string, string, string) (*WorkoutLog, error) {
	if s.activeLog != nil {
		return s.activeLog, nil
	}
	if s.createCalls > 0 && s.activeLogAfterConflict != nil {
		return s.activeLogAfterConflict, nil
	}
	return nil, nil
}

func (s *stubRepo) FindActiveUnlinkedWorkoutLog(context.Context, string, string, string) (*WorkoutLog, error) {
	return s.unlinkedLog, nil
}

func (s *stubRepo) LinkSession(_ context.Context, _ string, workoutLogID, sessionID string) error {
	s.linkedLogID = workoutLogID
	s.linkedSessionID = sessionID
	return nil
}

func (s *stubRepo) CreateWorkoutLog(_ context.Context, workoutLog WorkoutLog) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.created = workoutLog
	return nil
}

func (s *stubRepo) InsertSetLog(_ context.Context, setLog SetLog) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, setLog)
	return nil
}

func (s *stubRepo) GetSetLog(context.Context, string, string, string) (*SetLog, error) {
	return nil, nil
}

func (s *stubRepo) ListSetLogs(context.Context, string, string, *Cursor, int) ([]SetLog, *Cursor, error) {
	return nil, nil, nil
}

func (s *stubRepo) GetExerciseMetrics(context.Context, string, string, []string) ([]ExerciseMetrics, error) {
	if s.getMetricsErr != nil {
		return nil, s.getMetricsErr
	}
	return s.metrics, nil
}

func (s *stubRepo) UpsertExerciseMetrics(_ context.Context, _, _ string, rows []ExerciseMetrics, prs []PRResult) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upsertedRows = rows
	s.upsertedPRs = prs
	return nil
}
