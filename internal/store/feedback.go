package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

var (
	// ErrNotFound is returned when a feedback entry does not exist.
	ErrNotFound = errors.New("feedback not found")
)

// Feedback is an angler's verdict on a piece of advice.
type Feedback struct {
	ID         int64                `json:"id"`
	UserID     string               `json:"userId"`
	Species    string               `json:"species"`
	CityState  string               `json:"cityState"`
	Date       string               `json:"date"`
	TimeOfDay  fishing.TimeOfDay    `json:"timeOfDay"`
	Advice     fishing.AdviceResult `json:"advice"`
	WasHelpful bool                 `json:"wasHelpful"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// FeedbackSummary counts helpful and unhelpful votes.
type FeedbackSummary struct {
	Helpful   int `json:"helpful"`
	Unhelpful int `json:"unhelpful"`
}

// FeedbackStore persists feedback in SQLite.
type FeedbackStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenFeedbackStore opens (or creates) the database at path and ensures the schema.
func OpenFeedbackStore(path string) (*FeedbackStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening feedback database: %w", err)
	}
	enableWAL(db, slog.Default())

	if err := ensureFeedbackSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &FeedbackStore{db: db, now: time.Now}, nil
}

// enableWAL switches the database to write-ahead logging. The store still works
// in the default rollback mode, so a failure is only logged.
func enableWAL(db *sql.DB, log *slog.Logger) bool {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Warn("feedback database: enabling WAL failed", "error", err)
		return false
	}
	return true
}

func ensureFeedbackSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			species TEXT,
			city_state TEXT,
			date TEXT NOT NULL,
			time_of_day TEXT NOT NULL,
			advice TEXT NOT NULL,
			was_helpful INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_feedback_user ON feedback(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating feedback table: %w", err)
	}
	return nil
}

// Insert stores f and returns its id.
func (s *FeedbackStore) Insert(ctx context.Context, f Feedback) (int64, error) {
	advice, err := json.Marshal(f.Advice)
	if err != nil {
		return 0, fmt.Errorf("encoding advice: %w", err)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, species, city_state, date, time_of_day, advice, was_helpful, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.UserID, f.Species, f.CityState, f.Date, string(f.TimeOfDay), string(advice), f.WasHelpful, f.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting feedback: %w", err)
	}
	return res.LastInsertId()
}

// Get loads one feedback entry by id.
func (s *FeedbackStore) Get(ctx context.Context, id int64) (Feedback, error) {
	var (
		f         Feedback
		tod       string
		advice    string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, species, city_state, date, time_of_day, advice, was_helpful, created_at
		FROM feedback WHERE id = ?`, id).
		Scan(&f.ID, &f.UserID, &f.Species, &f.CityState, &f.Date, &tod, &advice, &f.WasHelpful, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Feedback{}, ErrNotFound
	}
	if err != nil {
		return Feedback{}, fmt.Errorf("querying feedback: %w", err)
	}

	f.TimeOfDay = fishing.TimeOfDay(tod)
	if err := json.Unmarshal([]byte(advice), &f.Advice); err != nil {
		return Feedback{}, fmt.Errorf("decoding advice: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		f.CreatedAt = ts
	}
	return f, nil
}

// Summary counts votes across all feedback.
func (s *FeedbackStore) Summary(ctx context.Context) (FeedbackSummary, error) {
	var sum FeedbackSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN was_helpful = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN was_helpful = 0 THEN 1 ELSE 0 END), 0)
		FROM feedback`).Scan(&sum.Helpful, &sum.Unhelpful)
	if err != nil {
		return FeedbackSummary{}, fmt.Errorf("summarizing feedback: %w", err)
	}
	return sum, nil
}

func (s *FeedbackStore) Close() error {
	return s.db.Close()
}
