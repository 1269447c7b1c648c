package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Gesture is a catalog entry stored in the database. Position orders the
// catalog; later positions win when several rules match.
type Gesture struct {
	gesture.Entry
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GestureRepository provides CRUD operations for catalog entries.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

const gestureColumns = `id, position, hands, pattern, name, message, color, speech, lang, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGesture(row rowScanner) (*Gesture, error) {
	g := &Gesture{}
	var pattern, color string

	err := row.Scan(&g.ID, &g.Position, &g.Hands, &pattern, &g.Name, &g.Message,
		&color, &g.Speech, &g.Lang, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pattern), &g.Pattern); err != nil {
		return nil, fmt.Errorf("gesture %q: decode pattern: %w", g.ID, err)
	}
	if err := g.Color.UnmarshalText([]byte(color)); err != nil {
		return nil, fmt.Errorf("gesture %q: %w", g.ID, err)
	}
	return g, nil
}

func encodePattern(p gesture.Pattern) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts a new entry. A Position of zero appends it after the last
// entry.
func (r *GestureRepository) Create(g *Gesture) error {
	if err := g.Rule.Validate(); err != nil {
		return err
	}
	pattern, err := encodePattern(g.Pattern)
	if err != nil {
		return err
	}

	if g.Position <= 0 {
		var last sql.NullInt64
		if err := r.db.QueryRow(`SELECT MAX(position) FROM gestures`).Scan(&last); err != nil {
			return err
		}
		g.Position = int(last.Int64) + 1
	}

	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO gestures (`+gestureColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Position, g.Hands, pattern, g.Name, g.Message,
		g.Color.String(), g.Speech, g.Lang, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// GetByID retrieves an entry by its gesture id.
func (r *GestureRepository) GetByID(id string) (*Gesture, error) {
	g, err := scanGesture(r.db.QueryRow(
		`SELECT `+gestureColumns+` FROM gestures WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// List retrieves all entries in catalog order.
func (r *GestureRepository) List() ([]*Gesture, error) {
	rows, err := r.db.Query(
		`SELECT ` + gestureColumns + ` FROM gestures ORDER BY position, created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g, err := scanGesture(rows)
		if err != nil {
			return nil, err
		}
		gestures = append(gestures, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gestures, nil
}

// Update replaces an existing entry.
func (r *GestureRepository) Update(g *Gesture) error {
	if err := g.Rule.Validate(); err != nil {
		return err
	}
	pattern, err := encodePattern(g.Pattern)
	if err != nil {
		return err
	}
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE gestures SET position = ?, hands = ?, pattern = ?, name = ?, message = ?,
		 color = ?, speech = ?, lang = ?, updated_at = ?
		 WHERE id = ?`,
		g.Position, g.Hands, pattern, g.Name, g.Message,
		g.Color.String(), g.Speech, g.Lang, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an entry by its gesture id.
func (r *GestureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Seed inserts entries when the table is empty and reports how many rows
// were written. A populated table is left alone.
func (r *GestureRepository) Seed(entries []gesture.Entry) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM gestures`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	now := time.Now()
	for i, e := range entries {
		if err := e.Rule.Validate(); err != nil {
			return 0, err
		}
		pattern, err := encodePattern(e.Pattern)
		if err != nil {
			return 0, err
		}
		_, err = tx.Exec(
			`INSERT INTO gestures (`+gestureColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, i+1, e.Hands, pattern, e.Name, e.Message,
			e.Color.String(), e.Speech, e.Lang, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("seed %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Catalog builds a validated catalog from the stored entries.
func (r *GestureRepository) Catalog() (*gesture.Catalog, error) {
	rows, err := r.List()
	if err != nil {
		return nil, err
	}
	entries := make([]gesture.Entry, len(rows))
	for i, g := range rows {
		entries[i] = g.Entry
	}
	return gesture.NewCatalog(entries)
}
