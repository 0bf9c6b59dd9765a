package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horia913/daily-fitness-sub007/internal/domain"
	"github.com/horia913/daily-fitness-sub007/internal/events"
	"github.com/horia913/daily-fitness-sub007/internal/observability"
)

// Repository provides Postgres-backed persistence for workout logs, set logs,
// exercise metrics, and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func setTenant(ctx context.Context, tx pgx.Tx, tenantID string) error {
	_, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID)
	return err
}

// GetWorkoutAssignment returns the assignment or nil when it does not exist.
func (r *Repository) GetWorkoutAssignment(ctx context.Context, tenantID, assignmentID string) (*domain.WorkoutAssignment, error) {
	const query = `SELECT assignment_id, tenant_id, client_id, template_id
        FROM workout_assignments WHERE tenant_id=$1 AND assignment_id=$2`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := setTenant(ctx, tx, tenantID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, query, tenantID, assignmentID)
	var assignment domain.WorkoutAssignment
	if err := row.Scan(&assignment.ID, &assignment.TenantID, &assignment.ClientID, &assignment.TemplateID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &assignment, nil
}

const workoutLogColumns = `workout_log_id, tenant_id, client_id, assignment_id, session_id, started_at, completed_at`

func scanWorkoutLog(row pgx.Row) (*domain.WorkoutLog, error) {
	var wl domain.WorkoutLog
	err := row.Scan(&wl.ID, &wl.TenantID, &wl.ClientID, &wl.AssignmentID, &wl.SessionID, &wl.StartedAt, &wl.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

// FindActiveWorkoutLog returns the active log for the (client, assignment)
// pair. With a session id, a log already linked to that session wins over a
// generic active one.
func (r *Repository) FindActiveWorkoutLog(ctx context.Context, tenantID, clientID, assignmentID, sessionID string) (*domain.WorkoutLog, error) {
	query := `SELECT ` + workoutLogColumns + `
        FROM workout_logs
        WHERE tenant_id=$1 AND client_id=$2 AND assignment_id=$3 AND completed_at IS NULL`
	args := []interface{}{tenantID, clientID, assignmentID}

	if sessionID != "" {
		query += ` ORDER BY (session_id = $4) DESC NULLS LAST, started_at DESC`
		args = append(args, sessionID)
	} else {
		query += ` ORDER BY started_at DESC`
	}
	query += ` LIMIT 1`

	return r.queryWorkoutLog(ctx, tenantID, query, args...)
}

// FindActiveUnlinkedWorkoutLog returns an active log with no session linkage.
func (r *Repository) FindActiveUnlinkedWorkoutLog(ctx context.Context, tenantID, clientID, assignmentID string) (*domain.WorkoutLog, error) {
	query := `SELECT ` + workoutLogColumns + `
        FROM workout_logs
        WHERE tenant_id=$1 AND client_id=$2 AND assignment_id=$3 AND completed_at IS NULL AND session_id IS NULL
        ORDER BY started_at DESC LIMIT 1`
	return r.queryWorkoutLog(ctx, tenantID, query, tenantID, clientID, assignmentID)
}

func (r *Repository) queryWorkoutLog(ctx context.Context, tenantID, query string, args ...interface{}) (*domain.WorkoutLog, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := setTenant(ctx, tx, tenantID); err != nil {
		return nil, err
	}

	wl, err := scanWorkoutLog(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return wl, nil
}

// LinkSession attaches a session id to an existing workout log.
func (r *Repository) LinkSession(ctx context.Context, tenantID, workoutLogID, sessionID string) error {
	const stmt = `UPDATE workout_logs SET session_id=$3
        WHERE tenant_id=$1 AND workout_log_id=$2 AND session_id IS NULL`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = setTenant(ctx, tx, tenantID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, stmt, tenantID, workoutLogID, sessionID); err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

// CreateWorkoutLog inserts a new workout log. The partial unique index over
// active (client, assignment) pairs turns a lost create race into
// domain.ErrActiveLogConflict instead of a duplicate row.
func (r *Repository) CreateWorkoutLog(ctx context.Context, workoutLog domain.WorkoutLog) error {
	const stmt = `INSERT INTO workout_logs (workout_log_id, tenant_id, client_id, assignment_id, session_id, started_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = setTenant(ctx, tx, workoutLog.TenantID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, stmt,
		workoutLog.ID,
		workoutLog.TenantID,
		workoutLog.ClientID,
		workoutLog.AssignmentID,
		workoutLog.SessionID,
		workoutLog.StartedAt,
		workoutLog.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = fmt.Errorf("%w: %s", domain.ErrActiveLogConflict, pgErr.ConstraintName)
		}
		return err
	}
	err = tx.Commit(ctx)
	return err
}

// InsertSetLog persists the set and records the set.logged outbox event in
// the same transaction.
func (r *Repository) InsertSetLog(ctx context.Context, setLog domain.SetLog) error {
	body, err := json.Marshal(setLog.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = setTenant(ctx, tx, setLog.TenantID); err != nil {
		return err
	}

	const stmt = `INSERT INTO set_logs (set_log_id, tenant_id, client_id, block_id, workout_log_id, block_type, payload, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		setLog.ID,
		setLog.TenantID,
		setLog.ClientID,
		setLog.BlockID,
		setLog.WorkoutLogID,
		string(setLog.BlockType),
		body,
		setLog.CompletedAt,
	)
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:set.logged", setLog.ID)
	if err = r.insertOutbox(ctx, tx, setLog.TenantID, "set", setLog.ID, "set.logged", dedupeKey, events.SetLogged{
		SetID:        setLog.ID,
		TenantID:     setLog.TenantID,
		ClientID:     setLog.ClientID,
		WorkoutLogID: setLog.WorkoutLogID,
		BlockID:      setLog.BlockID,
		BlockType:    string(setLog.BlockType),
		CompletedAt:  setLog.CompletedAt,
	}, fmt.Sprintf("%s:%s", setLog.TenantID, setLog.ClientID)); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordSetPersisted(setLog.CompletedAt)
	return nil
}

// GetSetLog retrieves one set log by id.
func (r *Repository) GetSetLog(ctx context.Context, tenantID, clientID, setLogID string) (*domain.SetLog, error) {
	const query = `SELECT set_log_id, tenant_id, client_id, block_id, workout_log_id, block_type, payload, completed_at
        FROM set_logs WHERE tenant_id=$1 AND client_id=$2 AND set_log_id=$3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := setTenant(ctx, tx, tenantID); err != nil {
		return nil, err
	}

	setLog, err := scanSetLog(tx.QueryRow(ctx, query, tenantID, clientID, setLogID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return setLog, nil
}

// ListSetLogs returns the client's set history ordered newest first.
func (r *Repository) ListSetLogs(ctx context.Context, tenantID, clientID string, cursor *domain.Cursor, limit int) ([]domain.SetLog, *domain.Cursor, error) {
	args := []interface{}{tenantID, clientID, limit}
	query := `SELECT set_log_id, tenant_id, client_id, block_id, workout_log_id, block_type, payload, completed_at
        FROM set_logs WHERE tenant_id=$1 AND client_id=$2`

	if cursor != nil {
		query += ` AND (completed_at, set_log_id) < ($4, $5)`
		args = append(args, cursor.CompletedAt, cursor.ID)
	}

	query += ` ORDER BY completed_at DESC, set_log_id DESC LIMIT $3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if err := setTenant(ctx, tx, tenantID); err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.SetLog, 0, limit)
	for rows.Next() {
		setLog, err := scanSetLog(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *setLog)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CompletedAt: last.CompletedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

func scanSetLog(row pgx.Row) (*domain.SetLog, error) {
	var (
		setLog    domain.SetLog
		blockType string
		raw       []byte
	)
	if err := row.Scan(&setLog.ID, &setLog.TenantID, &setLog.ClientID, &setLog.BlockID, &setLog.WorkoutLogID, &blockType, &raw, &setLog.CompletedAt); err != nil {
		return nil, err
	}
	setLog.BlockType = domain.BlockType(blockType)
	payload, err := domain.UnmarshalPayload(setLog.BlockType, raw)
	if err != nil {
		return nil, fmt.Errorf("decode payload for set %s: %w", setLog.ID, err)
	}
	setLog.Payload = payload
	return &setLog, nil
}

// GetExerciseMetrics loads the stored metrics rows for the given exercises.
// Missing exercises simply produce no row.
func (r *Repository) GetExerciseMetrics(ctx context.Context, tenantID, clientID string, exerciseIDs []string) ([]domain.ExerciseMetrics, error) {
	if len(exerciseIDs) == 0 {
		return nil, nil
	}

	const query = `SELECT tenant_id, client_id, exercise_id, estimated_one_rep_max, best_weight, best_weight_reps, best_volume, best_volume_weight, best_volume_reps, updated_at
        FROM exercise_metrics WHERE tenant_id=$1 AND client_id=$2 AND exercise_id = ANY($3)`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := setTenant(ctx, tx, tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, tenantID, clientID, exerciseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ExerciseMetrics, 0, len(exerciseIDs))
	for rows.Next() {
		var m domain.ExerciseMetrics
		if err := rows.Scan(&m.TenantID, &m.ClientID, &m.ExerciseID, &m.EstimatedOneRepMax, &m.BestWeight, &m.BestWeightReps, &m.BestVolume, &m.BestVolumeWeight, &m.BestVolumeReps, &m.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// upsertMetricsStmt only advances a field when the incoming value beats the
// stored one, so a concurrent writer that committed first cannot be
// overwritten with stale numbers.
const upsertMetricsStmt = `INSERT INTO exercise_metrics
        (tenant_id, client_id, exercise_id, estimated_one_rep_max, best_weight, best_weight_reps, best_volume, best_volume_weight, best_volume_reps, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (tenant_id, client_id, exercise_id) DO UPDATE SET
        estimated_one_rep_max = CASE
            WHEN EXCLUDED.estimated_one_rep_max IS NULL THEN exercise_metrics.estimated_one_rep_max
            WHEN exercise_metrics.estimated_one_rep_max IS NULL OR EXCLUDED.estimated_one_rep_max > exercise_metrics.estimated_one_rep_max THEN EXCLUDED.estimated_one_rep_max
            ELSE exercise_metrics.estimated_one_rep_max
        END,
        best_weight = CASE
            WHEN EXCLUDED.best_weight IS NOT NULL AND (exercise_metrics.best_weight IS NULL
                OR EXCLUDED.best_weight > exercise_metrics.best_weight
                OR (EXCLUDED.best_weight = exercise_metrics.best_weight AND COALESCE(EXCLUDED.best_weight_reps,0) > COALESCE(exercise_metrics.best_weight_reps,0)))
            THEN EXCLUDED.best_weight ELSE exercise_metrics.best_weight
        END,
        best_weight_reps = CASE
            WHEN EXCLUDED.best_weight IS NOT NULL AND (exercise_metrics.best_weight IS NULL
                OR EXCLUDED.best_weight > exercise_metrics.best_weight
                OR (EXCLUDED.best_weight = exercise_metrics.best_weight AND COALESCE(EXCLUDED.best_weight_reps,0) > COALESCE(exercise_metrics.best_weight_reps,0)))
            THEN EXCLUDED.best_weight_reps ELSE exercise_metrics.best_weight_reps
        END,
        best_volume = CASE
            WHEN EXCLUDED.best_volume IS NOT NULL AND (exercise_metrics.best_volume IS NULL OR EXCLUDED.best_volume > exercise_metrics.best_volume)
            THEN EXCLUDED.best_volume ELSE exercise_metrics.best_volume
        END,
        best_volume_weight = CASE
            WHEN EXCLUDED.best_volume IS NOT NULL AND (exercise_metrics.best_volume IS NULL OR EXCLUDED.best_volume > exercise_metrics.best_volume)
            THEN EXCLUDED.best_volume_weight ELSE exercise_metrics.best_volume_weight
        END,
        best_volume_reps = CASE
            WHEN EXCLUDED.best_volume IS NOT NULL AND (exercise_metrics.best_volume IS NULL OR EXCLUDED.best_volume > exercise_metrics.best_volume)
            THEN EXCLUDED.best_volume_reps ELSE exercise_metrics.best_volume_reps
        END,
        updated_at = GREATEST(exercise_metrics.updated_at, EXCLUDED.updated_at)`

// UpsertExerciseMetrics writes the merged rows in a single transaction and
// records a pr.achieved outbox event for every detected record.
func (r *Repository) UpsertExerciseMetrics(ctx context.Context, tenantID, clientID string, metricRows []domain.ExerciseMetrics, prs []domain.PRResult) error {
	if len(metricRows) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = setTenant(ctx, tx, tenantID); err != nil {
		return err
	}

	for _, m := range metricRows {
		_, err = tx.Exec(ctx, upsertMetricsStmt,
			tenantID,
			clientID,
			m.ExerciseID,
			m.EstimatedOneRepMax,
			m.BestWeight,
			m.BestWeightReps,
			m.BestVolume,
			m.BestVolumeWeight,
			m.BestVolumeReps,
			m.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	for _, pr := range prs {
		if !pr.WeightPR && !pr.VolumePR {
			continue
		}
		occurredAt := metricRows[0].UpdatedAt
		dedupeKey := fmt.Sprintf("%s:%s:pr.achieved:%d", clientID, pr.ExerciseID, occurredAt.UnixNano())
		if err = r.insertOutbox(ctx, tx, tenantID, "exercise_metrics", pr.ExerciseID, "pr.achieved", dedupeKey, events.PRAchieved{
			TenantID:   tenantID,
			ClientID:   clientID,
			ExerciseID: pr.ExerciseID,
			WeightPR:   pr.WeightPR,
			VolumePR:   pr.VolumePR,
			Weight:     pr.Weight,
			Reps:       pr.Reps,
			Volume:     pr.Volume,
			OccurredAt: occurredAt,
		}, fmt.Sprintf("%s:%s", tenantID, clientID)); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	for _, pr := range prs {
		if pr.WeightPR {
			observability.RecordPersonalRecord("weight")
		}
		if pr.VolumePR {
			observability.RecordPersonalRecord("volume")
		}
	}
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, tenantID, aggregateType, aggregateID, eventType, dedupeKey string, payload interface{}, partitionKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		tenantID,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"set.logged": {
		Topic:         "set_events",
		SchemaSubject: "set_events-value",
	},
	"pr.achieved": {
		Topic:         "pr_events",
		SchemaSubject: "pr_events-value",
	},
}
