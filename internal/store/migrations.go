package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Column names are part of the backup file format and must not change.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS labels (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	color          TEXT NOT NULL,
	category       TEXT,
	order_position INTEGER NOT NULL DEFAULT 0,
	isFavorite     INTEGER NOT NULL DEFAULT 0 CHECK(isFavorite IN (0, 1)),
	isDeleted      INTEGER NOT NULL DEFAULT 0 CHECK(isDeleted IN (0, 1)),
	deletedAt      TEXT,
	createdAt      TEXT NOT NULL,
	updatedAt      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	labelId          TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
	text             TEXT NOT NULL,
	date             TEXT NOT NULL,
	checked          INTEGER NOT NULL DEFAULT 0 CHECK(checked IN (0, 1)),
	order_position   INTEGER NOT NULL DEFAULT 0,
	reminderDateTime TEXT,
	reminderId       TEXT,
	isFavorite       INTEGER NOT NULL DEFAULT 0 CHECK(isFavorite IN (0, 1)),
	isDeleted        INTEGER NOT NULL DEFAULT 0 CHECK(isDeleted IN (0, 1)),
	deletedAt        TEXT,
	createdAt        TEXT NOT NULL,
	updatedAt        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_labels_deleted_position ON labels(isDeleted, order_position);
CREATE INDEX IF NOT EXISTS idx_labels_category ON labels(category);
CREATE INDEX IF NOT EXISTS idx_tasks_label_deleted_position ON tasks(labelId, isDeleted, order_position);
CREATE INDEX IF NOT EXISTS idx_tasks_reminder ON tasks(reminderDateTime);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_labels_favorite ON labels(isFavorite);
CREATE INDEX IF NOT EXISTS idx_tasks_favorite ON tasks(isFavorite);
CREATE INDEX IF NOT EXISTS idx_tasks_deleted_at ON tasks(deletedAt);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
