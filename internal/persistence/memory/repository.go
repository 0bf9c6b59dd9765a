// Package memory provides an in-memory Repository for local development and
// unit tests. It mirrors the Postgres implementation's semantics, including
// the single-active-log constraint per (client, assignment).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/horia913/daily-fitness-sub007/internal/domain"
)

// Repository stores workout data in memory.
type Repository struct {
	mu          sync.RWMutex
	assignments map[string]domain.WorkoutAssignment
	workoutLogs map[string]domain.WorkoutLog
	setLogs     map[string]domain.SetLog
	metrics     map[string]domain.ExerciseMetrics
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		assignments: make(map[string]domain.WorkoutAssignment),
		workoutLogs: make(map[string]domain.WorkoutLog),
		setLogs:     make(map[string]domain.SetLog),
		metrics:     make(map[string]domain.ExerciseMetrics),
	}
}

// SeedAssignment registers an assignment for tests and local development.
func (r *Repository) SeedAssignment(assignment domain.WorkoutAssignment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[assignment.TenantID+"/"+assignment.ID] = assignment
}

// GetWorkoutAssignment implements domain.Repository.
func (r *Repository) GetWorkoutAssignment(ctx context.Context, tenantID, assignmentID string) (*domain.WorkoutAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assignment, ok := r.assignments[tenantID+"/"+assignmentID]
	if !ok {
		return nil, nil
	}
	return &assignment, nil
}

// FindActiveWorkoutLog implements domain.Repository.
func (r *Repository) FindActiveWorkoutLog(ctx context.Context, tenantID, clientID, assignmentID, sessionID string) (*domain.WorkoutLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var fallback *domain.WorkoutLog
	for _, wl := range r.workoutLogs {
		if !isActiveFor(wl, tenantID, clientID, assignmentID) {
			continue
		}
		wl := wl
		if sessionID != "" && wl.SessionID != nil && *wl.SessionID == sessionID {
			return &wl, nil
		}
		fallback = &wl
	}
	return fallback, nil
}

// FindActiveUnlinkedWorkoutLog implements domain.Repository.
func (r *Repository) FindActiveUnlinkedWorkoutLog(ctx context.Context, tenantID, clientID, assignmentID string) (*domain.WorkoutLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, wl := range r.workoutLogs {
		if isActiveFor(wl, tenantID, clientID, assignmentID) && wl.SessionID == nil {
			wl := wl
			return &wl, nil
		}
	}
	return nil, nil
}

// LinkSession implements domain.Repository.
func (r *Repository) LinkSession(ctx context.Context, tenantID, workoutLogID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wl, ok := r.workoutLogs[workoutLogID]
	if !ok || wl.TenantID != tenantID {
		return domain.ErrWorkoutLogNotFound
	}
	if wl.SessionID == nil {
		wl.SessionID = &sessionID
		r.workoutLogs[workoutLogID] = wl
	}
	return nil
}

// CreateWorkoutLog implements domain.Repository.
func (r *Repository) CreateWorkoutLog(ctx context.Context, workoutLog domain.WorkoutLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wl := range r.workoutLogs {
		if isActiveFor(wl, workoutLog.TenantID, workoutLog.ClientID, workoutLog.AssignmentID) {
			return domain.ErrActiveLogConflict
		}
	}
	r.workoutLogs[workoutLog.ID] = workoutLog
	return nil
}

// InsertSetLog implements domain.Repository.
func (r *Repository) InsertSetLog(ctx context.Context, setLog domain.SetLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setLogs[setLog.ID] = setLog
	return nil
}

// GetSetLog implements domain.Repository.
func (r *Repository) GetSetLog(ctx context.Context, tenantID, clientID, setLogID string) (*domain.SetLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	setLog, ok := r.setLogs[setLogID]
	if !ok || setLog.TenantID != tenantID || setLog.ClientID != clientID {
		return nil, nil
	}
	return &setLog, nil
}

// ListSetLogs implements domain.Repository.
func (r *Repository) ListSetLogs(ctx context.Context, tenantID, clientID string, cursor *domain.Cursor, limit int) ([]domain.SetLog, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.SetLog, 0, len(r.setLogs))
	for _, setLog := range r.setLogs {
		if setLog.TenantID != tenantID || setLog.ClientID != clientID {
			continue
		}
		all = append(all, setLog)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CompletedAt.Equal(all[j].CompletedAt) {
			return all[i].CompletedAt.After(all[j].CompletedAt)
		}
		return all[i].ID > all[j].ID
	})

	results := make([]domain.SetLog, 0, limit)
	for _, setLog := range all {
		if cursor != nil {
			after := setLog.CompletedAt.After(cursor.CompletedAt) ||
				(setLog.CompletedAt.Equal(cursor.CompletedAt) && setLog.ID >= cursor.ID)
			if after {
				continue
			}
		}
		results = append(results, setLog)
		if len(results) == limit {
			break
		}
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{CompletedAt: last.CompletedAt, ID: last.ID}
	}
	return results, next, nil
}

// GetExerciseMetrics implements domain.Repository.
func (r *Repository) GetExerciseMetrics(ctx context.Context, tenantID, clientID string, exerciseIDs []string) ([]domain.ExerciseMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]domain.ExerciseMetrics, 0, len(exerciseIDs))
	for _, id := range exerciseIDs {
		if m, ok := r.metrics[metricsKey(tenantID, clientID, id)]; ok {
			results = append(results, m)
		}
	}
	return results, nil
}

// UpsertExerciseMetrics implements domain.Repository.
func (r *Repository) UpsertExerciseMetrics(ctx context.Context, tenantID, clientID string, rows []domain.ExerciseMetrics, prs []domain.PRResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range rows {
		r.metrics[metricsKey(tenantID, clientID, m.ExerciseID)] = m
	}
	return nil
}

func metricsKey(tenantID, clientID, exerciseID string) string {
	return tenantID + "/" + clientID + "/" + exerciseID
}

func isActiveFor(wl domain.WorkoutLog, tenantID, clientID, assignmentID string) bool {
	return wl.TenantID == tenantID && wl.ClientID == clientID &&
		wl.AssignmentID == assignmentID && wl.CompletedAt == nil
}
