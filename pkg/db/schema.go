package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    error TEXT,
    policy_code TEXT,
    submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS task_signals (
    task_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    time INTEGER NOT NULL,
    action TEXT NOT NULL,
    price REAL NOT NULL,
    size REAL NOT NULL,
    reason TEXT,
    order_id TEXT,
    order_type TEXT,
    limit_price REAL,
    PRIMARY KEY (task_id, seq),
    FOREIGN KEY(task_id) REFERENCES tasks(id)
);

CREATE TABLE IF NOT EXISTS training_episodes (
    task_id TEXT NOT NULL,
    episode INTEGER NOT NULL,
    total_reward REAL NOT NULL,
    epsilon REAL NOT NULL,
    win_rate REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (task_id, episode),
    FOREIGN KEY(task_id) REFERENCES tasks(id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_submitted ON tasks(submitted_at);
CREATE INDEX IF NOT EXISTS idx_episodes_task ON training_episodes(task_id);
`

// ApplyMigrations creates the schema when missing.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// openForTest is a helper for package tests using an in-memory database.
func openForTest() (*Database, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	d := &Database{DB: sqlDB}
	if err := ApplyMigrations(d); err != nil {
		return nil, err
	}
	return d, nil
}
