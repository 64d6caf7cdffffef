package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/signnatural/academy-cli/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertCourses inserts or replaces a batch of cached courses.
func (s *SQLiteStore) UpsertCourses(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO courses (
			id, title, slug, summary, level,
			price_cents, duration_weeks, published_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing course upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range courses {
		fetchedAt := c.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		_, err = stmt.ExecContext(ctx,
			c.ID, c.Title, c.Slug, c.Summary, c.Level,
			c.PriceCents, c.DurationWeeks, c.PublishedAt.UTC(), fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting course %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetCourses retrieves cached courses matching the provided filter.
func (s *SQLiteStore) GetCourses(ctx context.Context, opts CourseFilter) ([]model.Course, error) {
	var conditions []string
	var args []any

	if opts.Level != nil {
		conditions = append(conditions, "level = ?")
		args = append(args, *opts.Level)
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR summary LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM courses"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "published_at"
	if opts.SortBy != "" {
		allowedSorts := map[string]bool{
			"title":        true,
			"published_at": true,
			"price_cents":  true,
		}
		if allowedSorts[opts.SortBy] {
			sortBy = opts.SortBy
		}
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	var courses []model.Course
	if err := s.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	return courses, nil
}

// UpsertWorkshops inserts or replaces a batch of cached workshops.
func (s *SQLiteStore) UpsertWorkshops(ctx context.Context, workshops []model.Workshop) error {
	if len(workshops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO workshops (
			id, title, location, starts_at,
			capacity, spots_left, price_cents, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing workshop upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, w := range workshops {
		fetchedAt := w.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		_, err = stmt.ExecContext(ctx,
			w.ID, w.Title, w.Location, w.StartsAt.UTC(),
			w.Capacity, w.SpotsLeft, w.PriceCents, fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting workshop %s: %w", w.ID, err)
		}
	}

	return tx.Commit()
}

// GetUpcomingWorkshops retrieves cached workshops that start in the
// future, soonest first.
func (s *SQLiteStore) GetUpcomingWorkshops(ctx context.Context, limit int) ([]model.Workshop, error) {
	query := "SELECT * FROM workshops WHERE starts_at > ? ORDER BY starts_at ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var workshops []model.Workshop
	err := s.db.SelectContext(ctx, &workshops, query, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("querying upcoming workshops: %w", err)
	}
	return workshops, nil
}

// UpsertBookings inserts or replaces a batch of cached bookings.
func (s *SQLiteStore) UpsertBookings(ctx context.Context, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO bookings (
			id, workshop_id, course_id, title,
			status, scheduled_for, created_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing booking upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, b := range bookings {
		fetchedAt := b.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		_, err = stmt.ExecContext(ctx,
			b.ID, b.WorkshopID, b.CourseID, b.Title,
			string(b.Status), b.ScheduledFor.UTC(), b.CreatedAt.UTC(), fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting booking %s: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// GetBookings retrieves cached bookings matching the provided filter,
// soonest scheduled first.
func (s *SQLiteStore) GetBookings(ctx context.Context, opts BookingFilter) ([]model.Booking, error) {
	var conditions []string
	var args []any

	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*opts.Status))
	}
	if opts.UpcomingOnly {
		conditions = append(conditions, "scheduled_for > ?")
		args = append(args, time.Now().UTC())
	}

	query := "SELECT * FROM bookings"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scheduled_for ASC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	var bookings []model.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	return bookings, nil
}
