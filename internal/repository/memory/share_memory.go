// Package memory holds map-backed repositories for local development and tests.
// They enforce the same uniqueness rules as the SQL schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sharelink/internal/model"
	"sharelink/internal/repository"
)

// ShareMemory is an in-process implementation of repository.ShareRepository.
type ShareMemory struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*model.ShareRecord
	byToken map[string]int64
}

// NewShareMemory creates an empty ShareMemory.
func NewShareMemory() *ShareMemory {
	return &ShareMemory{
		byID:    make(map[int64]*model.ShareRecord),
		byToken: make(map[string]int64),
	}
}

var _ repository.ShareRepository = (*ShareMemory)(nil)

func (m *ShareMemory) Create(_ context.Context, rec *model.ShareRecord) (*model.ShareRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byToken[rec.ShortLink]; taken {
		return nil, repository.ErrDuplicateShortLink
	}
	m.nextID++
	stored := clone(rec)
	stored.ID = m.nextID
	m.byID[stored.ID] = stored
	m.byToken[stored.ShortLink] = stored.ID
	return clone(stored), nil
}

func (m *ShareMemory) FindByID(_ context.Context, id int64) (*model.ShareRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(rec), nil
}

func (m *ShareMemory) FindByShortLink(_ context.Context, shortLink string) (*model.ShareRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byToken[shortLink]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *ShareMemory) ExistsByShortLink(_ context.Context, shortLink string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byToken[shortLink]
	return ok, nil
}

func (m *ShareMemory) ListByOwner(_ context.Context, ownerID int64, q repository.ListQuery) (*repository.PageResult[model.ShareRecord], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var matched []model.ShareRecord
	for _, rec := range m.byID {
		if rec.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.OriginalName), search) {
			continue
		}
		matched = append(matched, *clone(rec))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return &repository.PageResult[model.ShareRecord]{
		Items: page(matched, q.Offset, q.Limit),
		Total: len(matched),
	}, nil
}

func (m *ShareMemory) OwnerStats(_ context.Context, ownerID int64, popular int) (*model.OwnerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &model.OwnerStats{}
	var owned []model.ShareRecord
	for _, rec := range m.byID {
		if rec.OwnerID != ownerID {
			continue
		}
		stats.TotalFiles++
		stats.TotalSize += rec.FileSize
		stats.TotalDownloads += rec.DownloadCount
		owned = append(owned, *clone(rec))
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].DownloadCount != owned[j].DownloadCount {
			return owned[i].DownloadCount > owned[j].DownloadCount
		}
		return owned[i].ID > owned[j].ID
	})
	stats.PopularFiles = page(owned, 0, popular)
	return stats, nil
}

func (m *ShareMemory) IncrementDownloadCount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.DownloadCount++
	return nil
}

func (m *ShareMemory) Update(_ context.Context, id int64, password *string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Password = copyString(password)
	rec.ExpiresAt = copyTime(expiresAt)
	return nil
}

func (m *ShareMemory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.byID[id]; ok {
		delete(m.byToken, rec.ShortLink)
		delete(m.byID, id)
	}
	return nil
}

func (m *ShareMemory) ListExpired(_ context.Context, now time.Time, limit int) ([]model.ShareRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []model.ShareRecord
	for _, rec := range m.byID {
		if rec.ExpiresAt != nil && rec.ExpiresAt.Before(now) {
			expired = append(expired, *clone(rec))
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].ExpiresAt.Equal(*expired[j].ExpiresAt) {
			return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt)
		}
		return expired[i].ID < expired[j].ID
	})
	return page(expired, 0, limit), nil
}

func (m *ShareMemory) ListAfter(_ context.Context, afterID int64, limit int) ([]model.ShareRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.ShareRecord
	for id, rec := range m.byID {
		if id > afterID {
			out = append(out, *clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, 0, limit), nil
}

func page(items []model.ShareRecord, offset, limit int) []model.ShareRecord {
	out := make([]model.ShareRecord, 0)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return out
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return append(out, items...)
}

func clone(rec *model.ShareRecord) *model.ShareRecord {
	c := *rec
	c.Password = copyString(rec.Password)
	c.ExpiresAt = copyTime(rec.ExpiresAt)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
