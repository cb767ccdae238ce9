package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const entryColumns = `id, borrowing_id, book_id, member_id, failed_step, status, detail, created_at, resolved_at, resolved_by, note`

// Insert: 1件追記する（更新は Resolve のみ）
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	const q = `
	INSERT INTO issue_reconciliations
	(id, borrowing_id, book_id, member_id, failed_step, status, detail, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.ID, e.BorrowingID, e.BookID, e.MemberID,
		string(e.FailedStep), string(e.Status), e.Detail, e.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	return getEntry(ctx, s.db, id)
}

// List: 条件に応じて動的WHERE + ORDER + LIMIT/OFFSET
func (s *Store) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	cond := strings.Join(where, " AND ")

	// COUNT（LIMIT/OFFSET をかける前の件数）
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issue_reconciliations WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + entryColumns + ` FROM issue_reconciliations WHERE ` + cond +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// Resolve closes an open entry. Resolving twice is a conflict.
func (s *Store) Resolve(ctx context.Context, id, by, note string, at sql.NullTime) (*Entry, error) {
	var out *Entry
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		// 同じトランザクション内で現状を読み直す
		e, err := getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Status == StatusResolved {
			return apierr.ErrConflict("entry already resolved")
		}
		const q = `
		UPDATE issue_reconciliations
		SET status = ?, resolved_at = ?, resolved_by = ?, note = ?
		WHERE id = ? AND status <> ?`
		res, err := tx.ExecContext(ctx, q, string(StatusResolved), at.Time, by, nullIfEmpty(note), id, string(StatusResolved))
		if err != nil {
			return err
		}
		// 並行して解決された場合は 0 行になる
		if n, _ := res.RowsAffected(); n != 1 {
			return apierr.ErrConflict("entry already resolved")
		}
		e.Status = StatusResolved
		e.ResolvedAt = at
		e.ResolvedBy = sql.NullString{String: by, Valid: true}
		e.Note = nullIfEmpty(note)
		out = e
		return nil
	})
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getEntry(ctx context.Context, q db.DBTX, id string) (*Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM issue_reconciliations WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("reconciliation entry not found")
		}
		return nil, err
	}
	return e, nil
}

// DB行 → Entry（step/status は文字列で保存している）
func scanEntry(r rowScanner) (*Entry, error) {
	var e Entry
	var step, status string
	if err := r.Scan(
		&e.ID, &e.BorrowingID, &e.BookID, &e.MemberID, &step, &status,
		&e.Detail, &e.CreatedAt, &e.ResolvedAt, &e.ResolvedBy, &e.Note,
	); err != nil {
		return nil, err
	}
	e.FailedStep = Step(step)
	e.Status = Status(status)
	return &e, nil
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
