package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	slug           TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	level          TEXT NOT NULL DEFAULT '',
	price_cents    INTEGER NOT NULL DEFAULT 0,
	duration_weeks INTEGER NOT NULL DEFAULT 0,
	published_at   DATETIME NOT NULL,
	fetched_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS workshops (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	starts_at   DATETIME NOT NULL,
	capacity    INTEGER NOT NULL DEFAULT 0,
	spots_left  INTEGER NOT NULL DEFAULT 0,
	price_cents INTEGER NOT NULL DEFAULT 0,
	fetched_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id            TEXT PRIMARY KEY,
	workshop_id   TEXT NOT NULL DEFAULT '',
	course_id     TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	scheduled_for DATETIME NOT NULL,
	created_at    DATETIME NOT NULL,
	fetched_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_courses_level ON courses(level);
CREATE INDEX IF NOT EXISTS idx_workshops_starts_at ON workshops(starts_at);
CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
CREATE INDEX IF NOT EXISTS idx_bookings_scheduled_for ON bookings(scheduled_for);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
