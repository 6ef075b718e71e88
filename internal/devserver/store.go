package devserver

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"transcript-navigator/internal/domain"
)

// Store persists job rows in sqlite, one row per filename.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the sqlite job table at path. The
// special path ":memory:" keeps everything in process memory.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcription_jobs (
		id TEXT PRIMARY KEY,
		filename TEXT UNIQUE NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		result TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate jobs table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateJob inserts a queued job row.
func (s *Store) CreateJob(id, filename string) error {
	_, err := s.db.Exec(
		`INSERT INTO transcription_jobs (id, filename, status) VALUES (?, ?, ?)`,
		id, filename, string(domain.JobStatusQueued),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByFilename returns the job row for a filename, if present.
func (s *Store) GetByFilename(filename string) (domain.TranscriptionJob, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, filename, status, result FROM transcription_jobs WHERE filename = ?`,
		filename,
	)

	var job domain.TranscriptionJob
	var result sql.NullString
	err := row.Scan(&job.ID, &job.Filename, &job.Status, &result)
	if err == sql.ErrNoRows {
		return domain.TranscriptionJob{}, false, nil
	}
	if err != nil {
		return domain.TranscriptionJob{}, false, fmt.Errorf("query job: %w", err)
	}

	if result.Valid && result.String != "" {
		var parsed domain.JobResult
		if err := json.Unmarshal([]byte(result.String), &parsed); err != nil {
			return domain.TranscriptionJob{}, false, fmt.Errorf("decode result column: %w", err)
		}
		job.Result = &parsed
	}
	return job, true, nil
}

// SetStatus updates a job's status without touching the result.
func (s *Store) SetStatus(id string, status domain.JobStatus) error {
	_, err := s.db.Exec(
		`UPDATE transcription_jobs SET status = ? WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// SetResult stores a terminal status and its result payload.
func (s *Store) SetResult(id string, status domain.JobStatus, result *domain.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE transcription_jobs SET status = ?, result = ? WHERE id = ?`,
		string(status), string(data), id,
	)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}
