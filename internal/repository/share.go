package repository

import (
	"context"
	"time"

	"sharelink/internal/model"
)

// ListQuery filters an owner's records. Search matches the original file name, case-insensitively.
type ListQuery struct {
	Search string
	PageQuery
}

// ShareRepository defines data access for share records.
// No business logic here; each method is a single persistence statement.
type ShareRepository interface {
	// Create inserts a new record and returns it with the database-assigned ID.
	// It returns ErrDuplicateShortLink if the short link violates the uniqueness constraint.
	Create(ctx context.Context, rec *model.ShareRecord) (*model.ShareRecord, error)

	// FindByID returns a record by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.ShareRecord, error)

	// FindByShortLink returns a record by its short link, or ErrNotFound.
	FindByShortLink(ctx context.Context, shortLink string) (*model.ShareRecord, error)

	// ExistsByShortLink reports whether any record uses the short link.
	ExistsByShortLink(ctx context.Context, shortLink string) (bool, error)

	// ListByOwner returns an owner's records, newest first, and the total matching count.
	ListByOwner(ctx context.Context, ownerID int64, q ListQuery) (*PageResult[model.ShareRecord], error)

	// OwnerStats aggregates an owner's records; popular limits the most-downloaded list.
	OwnerStats(ctx context.Context, ownerID int64, popular int) (*model.OwnerStats, error)

	// IncrementDownloadCount atomically adds one to the record's download counter.
	IncrementDownloadCount(ctx context.Context, id int64) error

	// Update replaces the password and expiry of a record.
	Update(ctx context.Context, id int64, password *string, expiresAt *time.Time) error

	// Delete removes a record by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id int64) error

	// ListExpired returns up to limit records whose expiry is strictly before now, oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.ShareRecord, error)

	// ListAfter returns up to limit records with ID greater than afterID, in ID order.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ShareRecord, error)
}
