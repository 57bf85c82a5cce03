package store

import "database/sql"

// Stroke is a journaled brush shape.
type Stroke struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"session_id"`
	Emotion       string  `json:"emotion"`
	Source        string  `json:"source"`
	Brush         string  `json:"brush"`
	Color         string  `json:"color"`
	Opacity       float64 `json:"opacity"`
	Bleed         float64 `json:"bleed"`
	Texture       float64 `json:"texture"`
	TextureBorder float64 `json:"texture_border"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	AtMs          int64   `json:"at_ms"`
}

// StrokeRepository provides access to strokes.
type StrokeRepository struct {
	db *sql.DB
}

// Strokes returns the stroke repository for this store.
func (s *Store) Strokes() *StrokeRepository {
	return &StrokeRepository{db: s.db}
}

// Create inserts a stroke.
func (r *StrokeRepository) Create(st *Stroke) error {
	_, err := r.db.Exec(
		`INSERT INTO strokes (id, session_id, emotion, source, brush, color, opacity, bleed,
		                      texture, texture_border, width, height, x, y, at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.SessionID, st.Emotion, st.Source, st.Brush, st.Color, st.Opacity, st.Bleed,
		st.Texture, st.TextureBorder, st.Width, st.Height, st.X, st.Y, st.AtMs,
	)
	return err
}

// ListBySession returns a session's strokes in paint order. A positive limit keeps
// only the first limit strokes.
func (r *StrokeRepository) ListBySession(sessionID string, limit int) ([]*Stroke, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, emotion, source, brush, color, opacity, bleed,
		        texture, texture_border, width, height, x, y, at_ms
		 FROM strokes WHERE session_id = ? ORDER BY at_ms, rowid LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strokes []*Stroke
	for rows.Next() {
		st := &Stroke{}
		err := rows.Scan(&st.ID, &st.SessionID, &st.Emotion, &st.Source, &st.Brush, &st.Color,
			&st.Opacity, &st.Bleed, &st.Texture, &st.TextureBorder, &st.Width, &st.Height,
			&st.X, &st.Y, &st.AtMs)
		if err != nil {
			return nil, err
		}
		strokes = append(strokes, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return strokes, nil
}

// CountBySession returns how many strokes a session painted.
func (r *StrokeRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM strokes WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
