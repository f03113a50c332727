// Package expiry computes and evaluates share expiration timestamps.
package expiry

import (
	"errors"
	"time"
)

// ErrInvalidExpiry is returned for day counts that are zero or negative.
var ErrInvalidExpiry = errors.New("expiresInDays must be a positive integer")

// MaxDays caps the accepted day count so the result stays representable.
const MaxDays = 36500

// ComputeExpiry adds days calendar days to now. Calendar arithmetic keeps the
// wall-clock time across DST changes in now's location.
func ComputeExpiry(now time.Time, days int) (time.Time, error) {
	if days <= 0 || days > MaxDays {
		return time.Time{}, ErrInvalidExpiry
	}
	return now.AddDate(0, 0, days), nil
}

// FromDays is ComputeExpiry for optional input: nil days means never expires.
func FromDays(now time.Time, days *int) (*time.Time, error) {
	if days == nil {
		return nil, nil
	}
	t, err := ComputeExpiry(now, *days)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// IsExpired reports whether expiresAt lies strictly before now.
// A nil timestamp never expires.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}
