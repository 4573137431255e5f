package bookrepo

import (
	"context"
	"database/sql"

	"bookswap/model"
)

// Repo is the availability ledger. The availability flag is mutated only
// through the tx-threaded methods, always under a row lock taken by the
// swap service; catalog writes never touch it.
type Repo interface {
	Insert(ctx context.Context, b *model.Book) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	IsOwnedBy(ctx context.Context, id, userID int64) (bool, error)
	IsAvailable(ctx context.Context, id int64) (bool, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error)
	ListAvailable(ctx context.Context, excludeOwnerID int64) ([]model.Book, error)

	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	SetAvailability(ctx context.Context, tx *sql.Tx, id int64, available bool) error
	SetOwner(ctx context.Context, tx *sql.Tx, id, ownerID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const bookCols = `id, owner_id, title, author, condition, is_available, created_at, updated_at`

func scanBook(row *sql.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Condition, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) Insert(ctx context.Context, b *model.Book) (int64, error) {
	const q = `
INSERT INTO books (owner_id, title, author, condition, is_available)
VALUES ($1,$2,$3,$4,TRUE)
RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowContext(ctx, q, b.OwnerID, b.Title, b.Author, b.Condition).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return 0, err
	}
	b.IsAvailable = true
	return b.ID, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	const q = `SELECT ` + bookCols + ` FROM books WHERE id = $1`
	return scanBook(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) IsOwnedBy(ctx context.Context, id, userID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1 AND owner_id = $2)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, id, userID).Scan(&ok)
	return ok, err
}

func (r *repo) IsAvailable(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT is_available FROM books WHERE id = $1`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, id).Scan(&ok)
	return ok, err
}

func (r *repo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error) {
	const q = `
SELECT ` + bookCols + `
FROM books
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, ownerID)
}

func (r *repo) ListAvailable(ctx context.Context, excludeOwnerID int64) ([]model.Book, error) {
	const q = `
SELECT ` + bookCols + `
FROM books
WHERE is_available AND owner_id <> $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, excludeOwnerID)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.Book, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Condition, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	const q = `
SELECT ` + bookCols + `
FROM books
WHERE id = $1
FOR UPDATE`
	var b model.Book
	err := tx.QueryRowContext(ctx, q, id).
		Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Condition, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) SetAvailability(ctx context.Context, tx *sql.Tx, id int64, available bool) error {
	const q = `
UPDATE books
SET is_available = $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, available)
	return err
}

func (r *repo) SetOwner(ctx context.Context, tx *sql.Tx, id, ownerID int64) error {
	const q = `
UPDATE books
SET owner_id = $2,
    updated_at = NOW()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, ownerID)
	return err
}
