package service

// Тесты сервисного слоя (internal/service).
//
//  Проверяем:
//  - приём отправок: honeypot, валидацию, очистку, спам-флаг, проглатывание сбоя записи;
//  - фоновое уведомление модератора;
//  - модерацию: идемпотентность, снятие флага при approve, NotFound;
//  - выборки: публичная проекция, фильтры панели, агрегаты;
//  - маппинг ошибок storage -> service;
//  - сценарии A–E приёма, модерации и выдачи.
//
// Моки хранилища: mockgen -source=./internal/storage/storage.go -destination=./mocks/store.go -package=mocks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/metrics"
	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/repository"
	"github.com/pribylovaa/site-comments/internal/spam"
	"github.com/pribylovaa/site-comments/internal/storage"
	"github.com/pribylovaa/site-comments/internal/storage/memory"
)

// fakeNotifier запоминает уведомления.
type fakeNotifier struct {
	mu     sync.Mutex
	calls  []models.Comment
	ctxErr []error
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, c models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	f.ctxErr = append(f.ctxErr, ctx.Err())
	return f.err
}

func (f *fakeNotifier) Calls() []models.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Comment(nil), f.calls...)
}

func testConfig() config.Config {
	return config.Config{
		Limits:     config.LimitsConfig{MaxFieldLength: 1000},
		Moderation: config.ModerationConfig{Moderator: "moderator"},
		Timeouts:   config.TimeoutConfig{Notify: time.Second},
	}
}

type fixture struct {
	svc      *Service
	notifier *fakeNotifier
	store    storage.Store
}

func newFixture(t *testing.T, st storage.Store, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	if st == nil {
		st = memory.New()
	}

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	n := &fakeNotifier{}
	svc := New(repository.New(st, 2), spam.New(nil, nil), n, metrics.New(prometheus.NewRegistry()), cfg)
	t.Cleanup(svc.Wait)

	return &fixture{svc: svc, notifier: n, store: st}
}

func (f *fixture) ingest(t *testing.T, in Submission) *models.Comment {
	t.Helper()

	res, err := f.svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.NotNil(t, res.Comment)
	return res.Comment
}

func TestScenarioA_SubmittedCommentIsPendingAndHidden(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c := f.ingest(t, Submission{Name: "John", Message: "Hello world", PageID: "/p1"})
	require.Equal(t, models.StatusPending, c.Status)
	require.False(t, c.Flagged)

	stored, err := f.svc.CommentByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)

	pub, err := f.svc.ListPublic(ctx, "/p1")
	require.NoError(t, err)
	require.Empty(t, pub)
}

func TestScenarioB_ApprovedCommentBecomesPublic(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c := f.ingest(t, Submission{Name: "John", Message: "Hello world", PageID: "/p1"})

	_, err := f.svc.Moderate(ctx, c.ID, Approve{}, "")
	require.NoError(t, err)

	pub, err := f.svc.ListPublic(ctx, "/p1")
	require.NoError(t, err)
	require.Len(t, pub, 1)
	require.Equal(t, "John", pub[0].Name)
	require.Equal(t, "Hello world", pub[0].Message)
	require.True(t, c.CreatedAt.Equal(pub[0].CreatedAt))
}

func TestScenarioC_SpamIsFlaggedAndHidden(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c := f.ingest(t, Submission{Message: "Free offer http://spam.tk", PageID: "/p1"})
	require.True(t, c.Flagged)
	require.Equal(t, models.StatusPending, c.Status)
	require.Equal(t, AnonymousName, c.Name)

	flagged, err := f.svc.ListAdmin(ctx, models.Filter{Status: models.FilterFlagged})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, c.ID, flagged[0].ID)

	pub, err := f.svc.ListPublic(ctx, "/p1")
	require.NoError(t, err)
	require.Empty(t, pub)
}

func TestScenarioD_HoneypotDropsSilently(t *testing.T) {
	f := newFixture(t, nil, func(c *config.Config) { c.Notify.ModeratorContact = "mod@site" })
	ctx := context.Background()

	before, err := f.svc.Stats(ctx)
	require.NoError(t, err)

	res, err := f.svc.Ingest(ctx, Submission{Name: "bot", Message: "hi", PageID: "/p1", Honeypot: "http://bot"})
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Nil(t, res.Comment)

	after, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, before.Total, after.Total)

	f.svc.Wait()
	require.Empty(t, f.notifier.Calls())
}

func TestScenarioE_UnknownIDs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ok, err := f.svc.Delete(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = f.svc.Moderate(ctx, "unknown", Approve{}, "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Moderate(ctx, "unknown", Reject{Reason: "x"}, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_StorageErrorsMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", repository.ErrNotFound, ErrNotFound},
		{"conflict", storage.ErrConflict, ErrConflict},
		{"fault", storage.ErrStorageFault, ErrStorageFault},
		{"canceled", context.Canceled, ErrInternal},
		{"other", errors.New("boom"), ErrInternal},
	}

	f := newFixture(t, nil)
	lg := discardLogger()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, f.svc.mapStorageErr(lg, "op", tt.err), tt.want)
		})
	}
}
