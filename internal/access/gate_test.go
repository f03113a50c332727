package access

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sharelink/internal/metrics"
	"sharelink/internal/model"
	"sharelink/internal/repository"
	"sharelink/internal/repository/memory"
	repomocks "sharelink/internal/repository/mocks"
	"sharelink/internal/storage"
	storagemocks "sharelink/internal/storage/mocks"
)

var epoch = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	gate    *Gate
	records *memory.ShareMemory
	content *storage.FileSystemStore
	clock   clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	content, err := storage.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	records := memory.NewShareMemory()
	clock := clockwork.NewFakeClockAt(epoch)
	return &fixture{
		gate:    NewGate(records, content, clock, nil),
		records: records,
		content: content,
		clock:   clock,
	}
}

func (f *fixture) add(t *testing.T, token string, password *string, expiresAt *time.Time, body string) *model.ShareRecord {
	t.Helper()
	ctx := context.Background()
	key := "shares/" + token
	if body != "" {
		_, err := f.content.Put(ctx, key, strings.NewReader(body), storage.PutObjectOptions{Size: int64(len(body))})
		require.NoError(t, err)
	}
	rec, err := f.records.Create(ctx, &model.ShareRecord{
		OwnerID:         1,
		OriginalName:    token + ".txt",
		StorageLocation: key,
		FileSize:        int64(len(body)),
		MimeType:        "text/plain",
		ShortLink:       token,
		Password:        password,
		ExpiresAt:       expiresAt,
		CreatedAt:       epoch,
	})
	require.NoError(t, err)
	return rec
}

func strptr(s string) *string { return &s }

func TestGate_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.Peek(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.gate.Download(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGate_MissingContentIsNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.add(t, "ghost", nil, nil, "")

	_, err := f.gate.Peek(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.gate.Download(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.records.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Zero(t, got.DownloadCount)
}

func TestGate_ExpiredBeatsPassword(t *testing.T) {
	f := newFixture(t)
	past := epoch.Add(-time.Hour)
	f.add(t, "old", strptr("secret"), &past, "data")

	_, err := f.gate.Peek(context.Background(), "old", "")
	assert.ErrorIs(t, err, ErrExpired)
	_, err = f.gate.Download(context.Background(), "old", "secret")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestGate_ExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	at := epoch.Add(time.Minute)
	f.add(t, "edge", nil, &at, "data")

	f.clock.Advance(time.Minute - time.Second)
	_, err := f.gate.Peek(context.Background(), "edge", "")
	assert.NoError(t, err)

	f.clock.Advance(2 * time.Second)
	_, err = f.gate.Peek(context.Background(), "edge", "")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestGate_Password(t *testing.T) {
	f := newFixture(t)
	f.add(t, "locked", strptr("secret"), nil, "data")
	ctx := context.Background()

	_, err := f.gate.Peek(ctx, "locked", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = f.gate.Download(ctx, "locked", "wrong")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	g, err := f.gate.Download(ctx, "locked", "secret")
	require.NoError(t, err)
	defer g.Content.Close()
	body, err := io.ReadAll(g.Content)
	require.NoError(t, err)
	assert.Equal(t, "data", string(body))
}

func TestGate_EmptyStoredPasswordIsOpen(t *testing.T) {
	f := newFixture(t)
	f.add(t, "open", strptr(""), nil, "data")

	_, err := f.gate.Peek(context.Background(), "open", "")
	assert.NoError(t, err)
}

func TestGate_PeekDoesNotCount(t *testing.T) {
	f := newFixture(t)
	rec := f.add(t, "peek", nil, nil, "data")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.gate.Peek(ctx, "peek", "")
		require.NoError(t, err)
	}
	got, err := f.records.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Zero(t, got.DownloadCount)
}

func TestGate_DownloadCounts(t *testing.T) {
	f := newFixture(t)
	rec := f.add(t, "count", nil, nil, "data")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g, err := f.gate.Download(ctx, "count", "")
		require.NoError(t, err)
		g.Content.Close()
	}
	got, err := f.records.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.DownloadCount)
}

func TestGate_StoreErrorIsNotNotFound(t *testing.T) {
	records := new(repomocks.MockShareRepository)
	content := new(storagemocks.MockStorage)
	gate := NewGate(records, content, clockwork.NewFakeClockAt(epoch), nil)
	boom := errors.New("connection reset")

	records.On("FindByShortLink", mock.Anything, "tok").Return(nil, boom)

	_, err := gate.Peek(context.Background(), "tok", "")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	records.AssertExpectations(t)
}

func TestGate_IncrementRaceWithDelete(t *testing.T) {
	records := new(repomocks.MockShareRepository)
	content := new(storagemocks.MockStorage)
	gate := NewGate(records, content, clockwork.NewFakeClockAt(epoch), nil)

	rec := &model.ShareRecord{ID: 7, ShortLink: "tok", StorageLocation: "k"}
	rc := io.NopCloser(strings.NewReader("x"))
	records.On("FindByShortLink", mock.Anything, "tok").Return(rec, nil)
	content.On("Get", mock.Anything, "k").Return(rc, storage.ObjectInfo{Key: "k"}, nil)
	records.On("IncrementDownloadCount", mock.Anything, int64(7)).Return(repository.ErrNotFound)

	_, err := gate.Download(context.Background(), "tok", "")
	assert.ErrorIs(t, err, ErrNotFound)
	records.AssertExpectations(t)
	content.AssertExpectations(t)
}

func TestGate_Metrics(t *testing.T) {
	content, err := storage.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	records := memory.NewShareMemory()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	f := &fixture{
		gate:    NewGate(records, content, clockwork.NewFakeClockAt(epoch), m),
		records: records,
		content: content,
	}
	f.add(t, "m", strptr("pw"), nil, "data")
	ctx := context.Background()

	_, _ = f.gate.Peek(ctx, "m", "")
	_, _ = f.gate.Peek(ctx, "m", "nope")
	_, _ = f.gate.Peek(ctx, "unknown", "")
	g, err := f.gate.Download(ctx, "m", "pw")
	require.NoError(t, err)
	g.Content.Close()

	downloads, err := testutil.GatherAndCount(reg, "sharelink_downloads_total")
	require.NoError(t, err)
	assert.Equal(t, 1, downloads)
	// One series per distinct reason.
	denied, err := testutil.GatherAndCount(reg, "sharelink_access_denied_total")
	require.NoError(t, err)
	assert.Equal(t, 3, denied)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "not_found", Reason(ErrNotFound))
	assert.Equal(t, "expired", Reason(ErrExpired))
	assert.Equal(t, "password_required", Reason(ErrPasswordRequired))
	assert.Equal(t, "password_mismatch", Reason(ErrPasswordMismatch))
	assert.Equal(t, "error", Reason(errors.New("x")))
}

func TestPasswordMatches(t *testing.T) {
	assert.True(t, PasswordMatches("secret", "secret"))
	assert.False(t, PasswordMatches("secret", "Secret"))
	assert.False(t, PasswordMatches("secret", "secret "))
}
