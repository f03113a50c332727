package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sharelink/internal/model"
	"sharelink/internal/repository"
)

// SharePostgres is a PostgreSQL implementation of repository.ShareRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type SharePostgres struct {
	db *sql.DB
}

// NewSharePostgres creates a new SharePostgres repository.
func NewSharePostgres(db *sql.DB) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

const shareColumns = `id, owner_id, original_name, storage_location, file_size, mime_type,
		short_link, password, download_count, expires_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShare(row rowScanner) (*model.ShareRecord, error) {
	var (
		rec       model.ShareRecord
		password  sql.NullString
		expiresAt sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.OriginalName,
		&rec.StorageLocation,
		&rec.FileSize,
		&rec.MimeType,
		&rec.ShortLink,
		&password,
		&rec.DownloadCount,
		&expiresAt,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if password.Valid {
		p := password.String
		rec.Password = &p
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	return &rec, nil
}

func scanShares(rows *sql.Rows) ([]model.ShareRecord, error) {
	defer rows.Close()
	items := make([]model.ShareRecord, 0)
	for rows.Next() {
		rec, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new record and returns the stored row.
// The unique constraint on short_link is the authority on token uniqueness.
func (r *SharePostgres) Create(ctx context.Context, rec *model.ShareRecord) (*model.ShareRecord, error) {
	q := `
		INSERT INTO shares (owner_id, original_name, storage_location, file_size, mime_type,
			short_link, password, download_count, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + shareColumns
	row := r.db.QueryRowContext(ctx, q,
		rec.OwnerID,
		rec.OriginalName,
		rec.StorageLocation,
		rec.FileSize,
		rec.MimeType,
		rec.ShortLink,
		rec.Password,
		rec.DownloadCount,
		rec.ExpiresAt,
		rec.CreatedAt,
	)
	out, err := scanShare(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateShortLink
		}
		return nil, fmt.Errorf("insert share: %w", err)
	}
	return out, nil
}

// FindByID fetches a single record by its ID.
func (r *SharePostgres) FindByID(ctx context.Context, id int64) (*model.ShareRecord, error) {
	q := `SELECT ` + shareColumns + ` FROM shares WHERE id = $1`
	return r.findOne(ctx, q, id)
}

// FindByShortLink fetches a single record by its short link.
func (r *SharePostgres) FindByShortLink(ctx context.Context, shortLink string) (*model.ShareRecord, error) {
	q := `SELECT ` + shareColumns + ` FROM shares WHERE short_link = $1`
	return r.findOne(ctx, q, shortLink)
}

func (r *SharePostgres) findOne(ctx context.Context, q string, arg any) (*model.ShareRecord, error) {
	rec, err := scanShare(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ExistsByShortLink reports whether the short link is already in use.
func (r *SharePostgres) ExistsByShortLink(ctx context.Context, shortLink string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM shares WHERE short_link = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, shortLink).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByOwner returns an owner's records using LIMIT/OFFSET pagination and a total count.
func (r *SharePostgres) ListByOwner(ctx context.Context, ownerID int64, lq repository.ListQuery) (*repository.PageResult[model.ShareRecord], error) {
	pattern := likePattern(lq.Search)

	const qCount = `SELECT COUNT(*) FROM shares WHERE owner_id = $1 AND original_name ILIKE $2`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, ownerID, pattern).Scan(&total); err != nil {
		return nil, err
	}

	qList := `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE owner_id = $1 AND original_name ILIKE $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, qList, ownerID, pattern, lq.Limit, lq.Offset)
	if err != nil {
		return nil, err
	}
	items, err := scanShares(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.ShareRecord]{Items: items, Total: total}, nil
}

// OwnerStats returns totals and the most downloaded records of an owner.
func (r *SharePostgres) OwnerStats(ctx context.Context, ownerID int64, popular int) (*model.OwnerStats, error) {
	const qTotals = `
		SELECT COUNT(*), COALESCE(SUM(file_size), 0), COALESCE(SUM(download_count), 0)
		FROM shares WHERE owner_id = $1
	`
	stats := &model.OwnerStats{}
	if err := r.db.QueryRowContext(ctx, qTotals, ownerID).Scan(
		&stats.TotalFiles,
		&stats.TotalSize,
		&stats.TotalDownloads,
	); err != nil {
		return nil, err
	}

	qPopular := `
		SELECT ` + shareColumns + `
		FROM shares WHERE owner_id = $1
		ORDER BY download_count DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, qPopular, ownerID, popular)
	if err != nil {
		return nil, err
	}
	items, err := scanShares(rows)
	if err != nil {
		return nil, err
	}
	stats.PopularFiles = items
	return stats, nil
}

// IncrementDownloadCount atomically increments the download counter.
func (r *SharePostgres) IncrementDownloadCount(ctx context.Context, id int64) error {
	const q = `UPDATE shares SET download_count = download_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Update replaces the password and expiry of a record.
func (r *SharePostgres) Update(ctx context.Context, id int64, password *string, expiresAt *time.Time) error {
	const q = `UPDATE shares SET password = $1, expires_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, q, password, expiresAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a record by ID. It does not return an error if the row does not exist.
func (r *SharePostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM shares WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// ListExpired returns records whose expiry has passed relative to now.
func (r *SharePostgres) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.ShareRecord, error) {
	q := `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC, id ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	return scanShares(rows)
}

// ListAfter walks the table in ID order for keyset pagination.
func (r *SharePostgres) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ShareRecord, error) {
	q := `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, q, afterID, limit)
	if err != nil {
		return nil, err
	}
	return scanShares(rows)
}

// likePattern turns a free-text search into an ILIKE substring pattern.
func likePattern(search string) string {
	if search == "" {
		return "%"
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}
