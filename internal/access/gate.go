// Package access decides whether an anonymous caller may see or fetch a share.
//
// Checks run in a fixed order: the record must exist, must not be expired,
// the password must match when one is set, and the content must still be
// present. Expiry is checked before the password, so an expired protected
// link reports ErrExpired.
package access

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"

	"sharelink/internal/expiry"
	"sharelink/internal/metrics"
	"sharelink/internal/model"
	"sharelink/internal/repository"
	"sharelink/internal/storage"
)

var (
	ErrNotFound         = errors.New("share not found")
	ErrExpired          = errors.New("share has expired")
	ErrPasswordRequired = errors.New("password required")
	ErrPasswordMismatch = errors.New("invalid password")
)

// Records is the subset of the share store the gate reads and writes.
type Records interface {
	FindByShortLink(ctx context.Context, shortLink string) (*model.ShareRecord, error)
	IncrementDownloadCount(ctx context.Context, id int64) error
}

// Grant is a successful download: the record as it was before the counter
// was bumped and an open reader over its content.
type Grant struct {
	Record  *model.ShareRecord
	Content io.ReadCloser
	Info    storage.ObjectInfo
}

// Gate evaluates access to shares against a clock.
type Gate struct {
	records Records
	content storage.Storage
	clock   clockwork.Clock
	metrics *metrics.Metrics
}

func NewGate(records Records, content storage.Storage, clock clockwork.Clock, m *metrics.Metrics) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{records: records, content: content, clock: clock, metrics: m}
}

// Peek returns the record's metadata without touching downloadCount.
func (g *Gate) Peek(ctx context.Context, shortLink, password string) (*model.ShareRecord, error) {
	rec, err := g.authorize(ctx, shortLink, password)
	if err != nil {
		return nil, err
	}
	ok, err := g.content.Exists(ctx, rec.StorageLocation)
	if err != nil {
		return nil, fmt.Errorf("check content: %w", err)
	}
	if !ok {
		g.deny(ErrNotFound)
		return nil, ErrNotFound
	}
	return rec, nil
}

// Download opens the content and then increments downloadCount, so the
// counter only moves for grants that actually have bytes to stream.
// The caller must close Grant.Content.
func (g *Gate) Download(ctx context.Context, shortLink, password string) (*Grant, error) {
	rec, err := g.authorize(ctx, shortLink, password)
	if err != nil {
		return nil, err
	}

	rc, info, err := g.content.Get(ctx, rec.StorageLocation)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			g.deny(ErrNotFound)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open content: %w", err)
	}

	if err := g.records.IncrementDownloadCount(ctx, rec.ID); err != nil {
		rc.Close()
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted between lookup and increment.
			g.deny(ErrNotFound)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("increment download count: %w", err)
	}
	g.metrics.Download()

	return &Grant{Record: rec, Content: rc, Info: info}, nil
}

func (g *Gate) authorize(ctx context.Context, shortLink, password string) (*model.ShareRecord, error) {
	rec, err := g.records.FindByShortLink(ctx, shortLink)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.deny(ErrNotFound)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find share: %w", err)
	}

	if expiry.IsExpired(rec.ExpiresAt, g.clock.Now()) {
		g.deny(ErrExpired)
		return nil, ErrExpired
	}

	if rec.HasPassword() {
		if password == "" {
			g.deny(ErrPasswordRequired)
			return nil, ErrPasswordRequired
		}
		if !PasswordMatches(*rec.Password, password) {
			g.deny(ErrPasswordMismatch)
			return nil, ErrPasswordMismatch
		}
	}
	return rec, nil
}

func (g *Gate) deny(reason error) {
	g.metrics.AccessDenied(Reason(reason))
}

// PasswordMatches compares a share password with the supplied value in
// constant time. Share passwords are stored as plaintext.
func PasswordMatches(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// Reason maps a gate error to its short metric and API code.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrPasswordRequired):
		return "password_required"
	case errors.Is(err, ErrPasswordMismatch):
		return "password_mismatch"
	default:
		return "error"
	}
}
