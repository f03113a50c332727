package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sharelink/internal/access"
	"sharelink/internal/model"
	"sharelink/internal/service"
)

type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) Upload(ctx context.Context, in service.UploadInput) (*model.ShareRecord, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareService) List(ctx context.Context, ownerID int64, search string, limit, offset int) (*service.ShareListResult, error) {
	args := m.Called(ctx, ownerID, search, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareListResult), args.Error(1)
}

func (m *MockShareService) Stats(ctx context.Context, ownerID int64) (*model.OwnerStats, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OwnerStats), args.Error(1)
}

func (m *MockShareService) Get(ctx context.Context, ownerID, id int64) (*model.ShareRecord, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareService) Update(ctx context.Context, ownerID, id int64, in service.UpdateInput) (*model.ShareRecord, error) {
	args := m.Called(ctx, ownerID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareService) Delete(ctx context.Context, ownerID, id int64) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *MockShareService) Peek(ctx context.Context, shortLink, password string) (*model.ShareRecord, error) {
	args := m.Called(ctx, shortLink, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}

func (m *MockShareService) Download(ctx context.Context, shortLink, password string) (*access.Grant, error) {
	args := m.Called(ctx, shortLink, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Grant), args.Error(1)
}

func (m *MockShareService) Lookup(ctx context.Context, shortLink string) (*model.ShareRecord, error) {
	args := m.Called(ctx, shortLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareRecord), args.Error(1)
}
