package reconcile

import (
	"context"
	"database/sql"
	"fmt"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS issue_reconciliations (
    id           CHAR(26)     NOT NULL PRIMARY KEY,
    borrowing_id BIGINT       NOT NULL DEFAULT 0,
    book_id      BIGINT       NOT NULL,
    member_id    BIGINT       NOT NULL,
    failed_step  VARCHAR(32)  NOT NULL,
    status       VARCHAR(16)  NOT NULL,
    detail       TEXT         NOT NULL,
    created_at   DATETIME(6)  NOT NULL,
    resolved_at  DATETIME(6)  NULL,
    resolved_by  VARCHAR(255) NULL,
    note         TEXT         NULL,
    INDEX idx_issue_reconciliations_status (status, created_at)
)`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS issue_reconciliations (
    id           TEXT     NOT NULL PRIMARY KEY,
    borrowing_id INTEGER  NOT NULL DEFAULT 0,
    book_id      INTEGER  NOT NULL,
    member_id    INTEGER  NOT NULL,
    failed_step  TEXT     NOT NULL CHECK (failed_step IN ('create_borrowing', 'update_book')),
    status       TEXT     NOT NULL CHECK (status IN ('compensated', 'unresolved', 'resolved')),
    detail       TEXT     NOT NULL,
    created_at   DATETIME NOT NULL,
    resolved_at  DATETIME,
    resolved_by  TEXT,
    note         TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_issue_reconciliations_status
    ON issue_reconciliations(status, created_at)`,
}

// Migrate creates the journal table for the given driver.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = []string{mysqlSchema}
	case "sqlite", "":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
