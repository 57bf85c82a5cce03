package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Session is one run of the render loop.
type Session struct {
	ID             string             `json:"id"`
	DefaultEmotion string             `json:"default_emotion"`
	Seed           uint64             `json:"seed"`
	Bias           map[string]float64 `json:"bias"`
	StartedAt      time.Time          `json:"started_at"`
	EndedAt        *time.Time         `json:"ended_at,omitempty"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	bias, err := json.Marshal(sess.Bias)
	if err != nil {
		return fmt.Errorf("encode bias: %w", err)
	}
	if sess.Bias == nil {
		bias = []byte("{}")
	}

	_, err = r.db.Exec(
		`INSERT INTO sessions (id, default_emotion, seed, bias, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.DefaultEmotion, int64(sess.Seed), string(bias), sess.StartedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, default_emotion, seed, bias, started_at, ended_at
		 FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, default_emotion, seed, bias, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// End stamps the session's end time.
func (r *SessionRepository) End(id string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a session with its triggers and strokes.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*Session, error) {
	sess := &Session{}
	var (
		seed  int64
		bias  string
		ended sql.NullTime
	)

	if err := sc.Scan(&sess.ID, &sess.DefaultEmotion, &seed, &bias, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}

	sess.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(bias), &sess.Bias); err != nil {
		return nil, fmt.Errorf("decode bias: %w", err)
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
