package store

import (
	"database/sql"
	"time"
)

// Trigger is a journaled emotion transition.
type Trigger struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Emotion   string    `json:"emotion"`
	Mode      string    `json:"mode"`
	Color     string    `json:"color"`
	AtMs      int64     `json:"at_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// TriggerRepository provides access to emotion_triggers.
type TriggerRepository struct {
	db *sql.DB
}

// Triggers returns the trigger repository for this store.
func (s *Store) Triggers() *TriggerRepository {
	return &TriggerRepository{db: s.db}
}

// Create appends a trigger and sets its ID.
func (r *TriggerRepository) Create(t *Trigger) error {
	t.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO emotion_triggers (session_id, emotion, mode, color, at_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Emotion, t.Mode, t.Color, t.AtMs, t.CreatedAt,
	)
	if err != nil {
		return err
	}

	t.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's triggers in the order they happened.
func (r *TriggerRepository) ListBySession(sessionID string) ([]*Trigger, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, emotion, mode, color, at_ms, created_at
		 FROM emotion_triggers WHERE session_id = ? ORDER BY at_ms, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []*Trigger
	for rows.Next() {
		t := &Trigger{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Emotion, &t.Mode, &t.Color, &t.AtMs, &t.CreatedAt); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return triggers, nil
}

// CountByEmotion tallies a session's triggers per emotion.
func (r *TriggerRepository) CountByEmotion(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT emotion, COUNT(*) FROM emotion_triggers WHERE session_id = ? GROUP BY emotion`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			emotion string
			n       int
		)
		if err := rows.Scan(&emotion, &n); err != nil {
			return nil, err
		}
		counts[emotion] = n
	}

	return counts, rows.Err()
}
