// Package sqlitestore provides the durable SQLite-backed job store. It is a
// drop-in substitute for the in-memory backend and satisfies the same
// contract, including monotonically increasing identifiers via AUTOINCREMENT.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mixdown/internal/job"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("database directory is required")
	}

	dbPath := filepath.Join(dir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a pending job for the source reference.
func (s *Store) Create(ctx context.Context, sourceURL string) (*job.Job, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, errors.New("source url is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (source_url, status, progress, created_at, updated_at)
         VALUES (?, ?, 0, ?, ?)`,
		sourceURL,
		job.StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by identifier, returning nil when absent.
func (s *Store) Get(ctx context.Context, id int64) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	record, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return record, nil
}

// List returns all jobs, most recently created first. Identifiers are
// assigned in creation order, so ordering by id avoids the precision loss
// of comparing stored timestamp strings.
func (s *Store) List(ctx context.Context) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListByStatus returns jobs matching any of the statuses, most recent first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...job.Status) ([]*job.Job, error) {
	if len(statuses) == 0 {
		return s.List(ctx)
	}
	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status IN (`+placeholders+`) ORDER BY id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Update applies the patch as a single autocommit UPDATE so concurrent
// writers serialize on SQLite's write lock instead of racing each other
// through read-modify-write transactions. Only the columns the patch sets
// are touched. A missing record yields (nil, nil).
func (s *Store) Update(ctx context.Context, id int64, patch job.Patch) (*job.Job, error) {
	assignments := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}

	if patch.Title != nil {
		assignments = append(assignments, "title = ?")
		args = append(args, nullableString(*patch.Title))
	}
	if patch.Status != nil {
		assignments = append(assignments, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Progress != nil {
		assignments = append(assignments, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.ArtifactKey != nil {
		assignments = append(assignments, "artifact_key = ?")
		args = append(args, nullableString(*patch.ArtifactKey))
	}
	if patch.ArtifactName != nil {
		assignments = append(assignments, "artifact_name = ?")
		args = append(args, nullableString(*patch.ArtifactName))
	}
	if patch.ArtifactSize != nil {
		// Stored verbatim: a zero-byte artifact is still an artifact.
		assignments = append(assignments, "artifact_size = ?")
		args = append(args, *patch.ArtifactSize)
	}
	if patch.ErrorDetail != nil {
		assignments = append(assignments, "error_detail = ?")
		args = append(args, nullableString(*patch.ErrorDetail))
	}
	if patch.CompletedAt != nil {
		assignments = append(assignments, "completed_at = ?")
		args = append(args, nullableTime(patch.CompletedAt))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET `+strings.Join(assignments, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

// Delete removes a job record, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[job.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[job.Status]int)
	for rows.Next() {
		var status job.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CreateUser inserts a user with a unique name.
func (s *Store) CreateUser(ctx context.Context, name, credential string) (*job.User, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, errors.New("user name is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (name, credential, created_at) VALUES (?, ?, ?)`,
		trimmed,
		credential,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getUser(ctx, id)
}

// GetUserByName fetches a user by name, returning nil when absent.
func (s *Store) GetUserByName(ctx context.Context, name string) (*job.User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, credential, created_at FROM users WHERE name = ?`,
		name,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) getUser(ctx context.Context, id int64) (*job.User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, credential, created_at FROM users WHERE id = ?`,
		id,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

const jobColumns = "id, source_url, title, status, progress, artifact_key, artifact_name, artifact_size, error_detail, created_at, updated_at, completed_at"

func collectJobs(rows *sql.Rows) ([]*job.Job, error) {
	var records []*job.Job
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*job.Job, error) {
	var (
		id           int64
		sourceURL    string
		title        sql.NullString
		statusStr    string
		progress     sql.NullInt64
		artifactKey  sql.NullString
		artifactName sql.NullString
		artifactSize sql.NullInt64
		errorDetail  sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&title,
		&statusStr,
		&progress,
		&artifactKey,
		&artifactName,
		&artifactSize,
		&errorDetail,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	record := &job.Job{
		ID:           id,
		SourceURL:    sourceURL,
		Title:        title.String,
		Status:       job.Status(statusStr),
		Progress:     int(progress.Int64),
		ArtifactKey:  artifactKey.String,
		ArtifactName: artifactName.String,
		ArtifactSize: artifactSize.Int64,
		ErrorDetail:  errorDetail.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			record.CompletedAt = &completed
		}
	}
	return record, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*job.User, error) {
	var (
		id         int64
		name       string
		credential sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &credential, &createdRaw); err != nil {
		return nil, err
	}
	user := &job.User{ID: id, Name: name, Credential: credential.String}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		user.CreatedAt = created
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

var _ job.Store = (*Store)(nil)
