package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sharelink/internal/model"
	"sharelink/internal/repository"
)

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) Create(ctx context.Context, rec *model.ShareRecord) (*model.ShareRecord, error) {
	args := m.Called(ctx, rec)
	if f, ok := args.Get(0).(func(context.Context, *model.ShareRecord) *model.ShareRecord); ok {
		return f(ctx, rec), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareRepository) FindByID(ctx context.Context, id int64) (*model.ShareRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareRepository) FindByShortLink(ctx context.Context, shortLink string) (*model.ShareRecord, error) {
	args := m.Called(ctx, shortLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareRepository) ExistsByShortLink(ctx context.Context, shortLink string) (bool, error) {
	args := m.Called(ctx, shortLink)
	return args.Bool(0), args.Error(1)
}

func (m *MockShareRepository) ListByOwner(ctx context.Context, ownerID int64, q repository.ListQuery) (*repository.PageResult[model.ShareRecord], error) {
	args := m.Called(ctx, ownerID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ShareRecord]), args.Error(1)
}

func (m *MockShareRepository) OwnerStats(ctx context.Context, ownerID int64, popular int) (*model.OwnerStats, error) {
	args := m.Called(ctx, ownerID, popular)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OwnerStats), args.Error(1)
}

func (m *MockShareRepository) IncrementDownloadCount(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockShareRepository) Update(ctx context.Context, id int64, password *string, expiresAt *time.Time) error {
	return m.Called(ctx, id, password, expiresAt).Error(0)
}

func (m *MockShareRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockShareRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.ShareRecord, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ShareRecord), args.Error(1)
}

func (m *MockShareRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ShareRecord, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ShareRecord), args.Error(1)
}
