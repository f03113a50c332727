package shortlink

import (
	"context"
	"errors"
	"fmt"

	"sharelink/internal/repository"
)

// DefaultMaxAttempts bounds token generation per issuance.
const DefaultMaxAttempts = 10

// ErrLinkSpaceExhausted is returned when every attempt produced a token that is already taken.
var ErrLinkSpaceExhausted = errors.New("short link space exhausted")

// Lookup reports whether a token is already bound to a record.
type Lookup interface {
	ExistsByShortLink(ctx context.Context, shortLink string) (bool, error)
}

// Resolver pairs a Generator with a storage lookup to find unused tokens.
type Resolver struct {
	gen         Generator
	lookup      Lookup
	maxAttempts int
}

// NewResolver builds a Resolver. Non-positive maxAttempts falls back to DefaultMaxAttempts.
func NewResolver(gen Generator, lookup Lookup, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Resolver{gen: gen, lookup: lookup, maxAttempts: maxAttempts}
}

// Resolve returns a token that was free at the time of the check. The caller
// must still persist it under a uniqueness constraint; prefer Issue.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		token, free, err := r.candidate(ctx)
		if err != nil {
			return "", err
		}
		if free {
			return token, nil
		}
	}
	return "", ErrLinkSpaceExhausted
}

// Issue resolves a token and hands it to persist. When persist reports
// repository.ErrDuplicateShortLink (a concurrent insert won the race) a new
// token is drawn. Pre-check hits and insert conflicts share one attempt budget.
// Any other error aborts immediately.
func (r *Resolver) Issue(ctx context.Context, persist func(token string) error) (string, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		token, free, err := r.candidate(ctx)
		if err != nil {
			return "", err
		}
		if !free {
			continue
		}
		err = persist(token)
		if errors.Is(err, repository.ErrDuplicateShortLink) {
			continue
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}
	return "", ErrLinkSpaceExhausted
}

func (r *Resolver) candidate(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	token, err := r.gen.Generate()
	if err != nil {
		return "", false, err
	}
	exists, err := r.lookup.ExistsByShortLink(ctx, token)
	if err != nil {
		return "", false, fmt.Errorf("check short link: %w", err)
	}
	return token, !exists, nil
}
