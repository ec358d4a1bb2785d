package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repository: not found")

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContentHashRepo handles content hash rows.
type ContentHashRepo struct {
	db Querier
}

func NewContentHashRepo(db Querier) *ContentHashRepo {
	return &ContentHashRepo{db: db}
}

// ContentHashID derives a stable id from a file path.
func ContentHashID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

func (r *ContentHashRepo) Upsert(ctx context.Context, h ContentHash) error {
	if h.ID == "" {
		h.ID = ContentHashID(h.Path)
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO content_hashes(id, path, sha256, size, modified_at, hashed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
	 sha256=excluded.sha256,
	 size=excluded.size,
	 modified_at=excluded.modified_at,
	 hashed_at=excluded.hashed_at;
	`, h.ID, h.Path, h.SHA256, h.Size, h.ModifiedAt.UTC(), h.HashedAt.UTC())
	return err
}

func (r *ContentHashRepo) GetByPath(ctx context.Context, path string) (ContentHash, error) {
	var h ContentHash
	err := r.db.QueryRowContext(ctx, `
	SELECT id, path, sha256, size, modified_at, hashed_at
	FROM content_hashes WHERE path = ?`, path).
		Scan(&h.ID, &h.Path, &h.SHA256, &h.Size, &h.ModifiedAt, &h.HashedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentHash{}, ErrNotFound
	}
	return h, err
}

func (r *ContentHashRepo) List(ctx context.Context) ([]ContentHash, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, path, sha256, size, modified_at, hashed_at FROM content_hashes ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContentHash
	for rows.Next() {
		var h ContentHash
		if err := rows.Scan(&h.ID, &h.Path, &h.SHA256, &h.Size, &h.ModifiedAt, &h.HashedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// FindBySHA256 returns every path recorded with the given digest.
func (r *ContentHashRepo) FindBySHA256(ctx context.Context, sum string) ([]ContentHash, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, path, sha256, size, modified_at, hashed_at FROM content_hashes WHERE sha256 = ? ORDER BY path`, sum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContentHash
	for rows.Next() {
		var h ContentHash
		if err := rows.Scan(&h.ID, &h.Path, &h.SHA256, &h.Size, &h.ModifiedAt, &h.HashedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *ContentHashRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM content_hashes WHERE id = ?`, id)
	return err
}

func (r *ContentHashRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_hashes`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
