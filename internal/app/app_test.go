package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/service"
	"github.com/pribylovaa/site-comments/internal/storage/file"
	"github.com/pribylovaa/site-comments/internal/storage/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() config.Config {
	return config.Config{
		Store: config.StoreConfig{
			Driver:     config.DriverMemory,
			Scope:      "default",
			MaxRetries: 3,
		},
		Limits:     config.LimitsConfig{MaxFieldLength: 1000},
		Moderation: config.ModerationConfig{Moderator: "moderator"},
		Notify:     config.NotifyConfig{Subject: "comments.submitted", Stream: "COMMENTS"},
	}
}

func TestNew_MemoryDriver(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, baseConfig(), discardLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(ctx)) })

	require.IsType(t, &memory.Store{}, a.Store)
	require.NotNil(t, a.Metrics)
	require.NoError(t, a.Ping(ctx))

	res, err := a.Service.Ingest(ctx, service.Submission{Message: "hello", PageID: "/p"})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	st, err := a.Service.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, models.Stats{Total: 1, Pending: 1}, st)
}

// Данные файлового хранилища переживают пересоздание приложения.
func TestNew_FileDriverPersists(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	cfg.Store.Driver = config.DriverFile
	cfg.Store.File.Path = filepath.Join(t.TempDir(), "data", "comments.json")

	a, err := New(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)
	require.IsType(t, &file.Store{}, a.Store)
	require.Nil(t, a.Metrics)

	res, err := a.Service.Ingest(ctx, service.Submission{Name: "John", Message: "hello", PageID: "/p"})
	require.NoError(t, err)
	_, err = a.Service.Moderate(ctx, res.Comment.ID, service.Approve{}, "")
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	b, err := New(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(ctx) })

	items, err := b.Service.ListPublic(ctx, "/p")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "John", items[0].Name)
}

// Контакт модератора без NATS_URL включает издателя-заглушку.
func TestNew_NotifierStubMode(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	cfg.Notify.ModeratorContact = "mod@site"

	a, err := New(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)
	require.NotNil(t, a.publisher)

	_, err = a.Service.Ingest(ctx, service.Submission{Message: "hello", PageID: "/p"})
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := baseConfig()
	cfg.Store.Driver = "redis"

	_, err := New(context.Background(), cfg, discardLogger(), nil)
	require.Error(t, err)
}

func TestNew_MongoRequiresURL(t *testing.T) {
	cfg := baseConfig()
	cfg.Store.Driver = config.DriverMongo

	_, err := New(context.Background(), cfg, discardLogger(), nil)
	require.Error(t, err)
}
