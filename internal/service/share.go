package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"sharelink/internal/access"
	"sharelink/internal/expiry"
	"sharelink/internal/metrics"
	"sharelink/internal/model"
	"sharelink/internal/repository"
	"sharelink/internal/shortlink"
	"sharelink/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	popularFiles     = 5
	maxExtLen        = 16
)

// UploadInput carries one owner upload. Password "" means an open link and a
// nil ExpiresInDays means the link never expires.
type UploadInput struct {
	OwnerID       int64
	Reader        io.Reader
	OriginalName  string
	ContentType   string
	Size          int64
	Password      string
	ExpiresInDays *int
}

// UpdateInput replaces the share password ("" clears it) and, when
// ExpiresInDays is set, recomputes the expiry from now.
type UpdateInput struct {
	Password      string
	ExpiresInDays *int
}

// ShareListResult is the service-level DTO for paginated shares.
type ShareListResult struct {
	Items []model.ShareRecord `json:"data"`
	Total int                 `json:"total"`
}

// ShareService defines the owner and anonymous use cases around share records.
type ShareService interface {
	// Upload stores the content, issues a unique short link and saves the record.
	// The content is removed again if no record could be saved.
	Upload(ctx context.Context, in UploadInput) (*model.ShareRecord, error)
	List(ctx context.Context, ownerID int64, search string, limit, offset int) (*ShareListResult, error)
	Stats(ctx context.Context, ownerID int64) (*model.OwnerStats, error)
	// Get returns an owner's record. Records of other owners are reported as ErrNotFound.
	Get(ctx context.Context, ownerID, id int64) (*model.ShareRecord, error)
	Update(ctx context.Context, ownerID, id int64, in UpdateInput) (*model.ShareRecord, error)
	// Delete removes the content first and then the record.
	Delete(ctx context.Context, ownerID, id int64) error

	// Peek runs the access gate without counting a download.
	Peek(ctx context.Context, shortLink, password string) (*model.ShareRecord, error)
	// Download runs the access gate, counts the download and opens the content.
	Download(ctx context.Context, shortLink, password string) (*access.Grant, error)
	// Lookup reports only whether a short link exists.
	Lookup(ctx context.Context, shortLink string) (*model.ShareRecord, error)
}

// ShareOptions bounds uploads.
type ShareOptions struct {
	MaxFileSize      int64
	AllowedFileTypes []string
}

type shareService struct {
	repo     repository.ShareRepository
	store    storage.Storage
	resolver *shortlink.Resolver
	gate     *access.Gate
	clock    clockwork.Clock
	metrics  *metrics.Metrics
	opts     ShareOptions
}

// NewShareService wires the share use cases.
func NewShareService(
	repo repository.ShareRepository,
	store storage.Storage,
	resolver *shortlink.Resolver,
	gate *access.Gate,
	clock clockwork.Clock,
	m *metrics.Metrics,
	opts ShareOptions,
) ShareService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &shareService{
		repo:     repo,
		store:    store,
		resolver: resolver,
		gate:     gate,
		clock:    clock,
		metrics:  m,
		opts:     opts,
	}
}

func (s *shareService) Upload(ctx context.Context, in UploadInput) (*model.ShareRecord, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if in.OwnerID <= 0 {
		return nil, invalid("owner is required")
	}
	if s.opts.MaxFileSize > 0 && in.Size > s.opts.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	contentType := normalizeType(in.ContentType)
	if !TypeAllowed(contentType, s.opts.AllowedFileTypes) {
		return nil, ErrUnsupportedType
	}

	now := s.clock.Now().UTC()
	expiresAt, err := expiry.FromDays(now, in.ExpiresInDays)
	if err != nil {
		return nil, err
	}

	key := storageKey(in.OriginalName)
	r := in.Reader
	if s.opts.MaxFileSize > 0 {
		r = io.LimitReader(r, s.opts.MaxFileSize+1)
	}
	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": in.OriginalName},
	})
	if err != nil {
		return nil, unavailable("upload to storage", err)
	}
	if s.opts.MaxFileSize > 0 && objInfo.Size > s.opts.MaxFileSize {
		return nil, s.rollback(ctx, key, ErrFileTooLarge)
	}

	var password *string
	if in.Password != "" {
		pw := in.Password
		password = &pw
	}

	var created *model.ShareRecord
	_, err = s.resolver.Issue(ctx, func(token string) error {
		rec, err := s.repo.Create(ctx, &model.ShareRecord{
			OwnerID:         in.OwnerID,
			OriginalName:    in.OriginalName,
			StorageLocation: key,
			FileSize:        objInfo.Size,
			MimeType:        contentType,
			ShortLink:       token,
			Password:        password,
			ExpiresAt:       expiresAt,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		err = s.rollback(ctx, key, err)
		if errors.Is(err, shortlink.ErrLinkSpaceExhausted) {
			return nil, err
		}
		return nil, unavailable("db save failed", err)
	}

	s.metrics.Upload()
	return created, nil
}

// rollback removes content stored for a failed upload. A failed delete leaves
// an orphaned object; it is logged and appended to cause.
func (s *shareService) rollback(ctx context.Context, key string, cause error) error {
	delErr := s.store.Delete(ctx, key)
	if delErr == nil {
		return cause
	}
	zerolog.Ctx(ctx).Error().
		Err(delErr).
		Str("storage_key", key).
		AnErr("cause", cause).
		Msg("upload rollback failed, content orphaned")
	return fmt.Errorf("%w; rollback delete failed: %v", cause, delErr)
}

func (s *shareService) List(ctx context.Context, ownerID int64, search string, limit, offset int) (*ShareListResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListByOwner(ctx, ownerID, repository.ListQuery{
		Search:    strings.TrimSpace(search),
		PageQuery: repository.PageQuery{Limit: limit, Offset: offset},
	})
	if err != nil {
		return nil, unavailable("list shares", err)
	}
	return &ShareListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *shareService) Stats(ctx context.Context, ownerID int64) (*model.OwnerStats, error) {
	stats, err := s.repo.OwnerStats(ctx, ownerID, popularFiles)
	if err != nil {
		return nil, unavailable("owner stats", err)
	}
	if stats.PopularFiles == nil {
		stats.PopularFiles = []model.ShareRecord{}
	}
	return stats, nil
}

func (s *shareService) Get(ctx context.Context, ownerID, id int64) (*model.ShareRecord, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("find share", err)
	}
	if rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *shareService) Update(ctx context.Context, ownerID, id int64, in UpdateInput) (*model.ShareRecord, error) {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	expiresAt := rec.ExpiresAt
	if in.ExpiresInDays != nil {
		expiresAt, err = expiry.FromDays(s.clock.Now().UTC(), in.ExpiresInDays)
		if err != nil {
			return nil, err
		}
	}
	var password *string
	if in.Password != "" {
		pw := in.Password
		password = &pw
	}

	if err := s.repo.Update(ctx, id, password, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("update share", err)
	}
	rec.Password = password
	rec.ExpiresAt = expiresAt
	return rec, nil
}

func (s *shareService) Delete(ctx context.Context, ownerID, id int64) error {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	// Content first: a failure here keeps the row so the owner can retry.
	if err := s.store.Delete(ctx, rec.StorageLocation); err != nil {
		return unavailable("delete storage", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return unavailable("delete share", err)
	}
	return nil
}

func (s *shareService) Peek(ctx context.Context, shortLink, password string) (*model.ShareRecord, error) {
	if !shortlink.Valid(shortLink) {
		return nil, access.ErrNotFound
	}
	rec, err := s.gate.Peek(ctx, shortLink, password)
	if err != nil {
		return nil, gateError(err)
	}
	return rec, nil
}

func (s *shareService) Download(ctx context.Context, shortLink, password string) (*access.Grant, error) {
	if !shortlink.Valid(shortLink) {
		return nil, access.ErrNotFound
	}
	g, err := s.gate.Download(ctx, shortLink, password)
	if err != nil {
		return nil, gateError(err)
	}
	return g, nil
}

func (s *shareService) Lookup(ctx context.Context, shortLink string) (*model.ShareRecord, error) {
	if !shortlink.Valid(shortLink) {
		return nil, access.ErrNotFound
	}
	rec, err := s.repo.FindByShortLink(ctx, shortLink)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, access.ErrNotFound
		}
		return nil, unavailable("find share", err)
	}
	return rec, nil
}

func gateError(err error) error {
	switch {
	case errors.Is(err, access.ErrNotFound),
		errors.Is(err, access.ErrExpired),
		errors.Is(err, access.ErrPasswordRequired),
		errors.Is(err, access.ErrPasswordMismatch):
		return err
	default:
		return unavailable("access share", err)
	}
}

// TypeAllowed matches contentType against an allow-list of exact types and
// "type/*" wildcards. An empty list allows everything.
func TypeAllowed(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	major, _, _ := strings.Cut(contentType, "/")
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == contentType || a == "*/*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && prefix == major {
			return true
		}
	}
	return false
}

func normalizeType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// storageKey derives an opaque key; the original name only contributes its extension.
func storageKey(originalName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(originalName, "\\", "/")))
	if len(ext) > maxExtLen || !shortlink.Valid(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return "shares/" + uuid.NewString() + ext
}
