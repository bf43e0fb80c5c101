package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/repository"
	"github.com/pribylovaa/site-comments/internal/service"
	"github.com/pribylovaa/site-comments/internal/spam"
	"github.com/pribylovaa/site-comments/internal/storage/memory"
)

func newService(t *testing.T) *service.Service {
	t.Helper()

	cfg := config.Config{
		Limits:     config.LimitsConfig{MaxFieldLength: 1000},
		Moderation: config.ModerationConfig{Moderator: "moderator"},
	}
	return service.New(repository.New(memory.New(), 2), spam.New(nil, nil), nil, nil, cfg)
}

func staticOpener(svc *service.Service) Opener {
	return func(context.Context, string) (*service.Service, func() error, error) {
		return svc, func() error { return nil }, nil
	}
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	root := NewRootCmd(open)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func seed(t *testing.T, svc *service.Service, sub service.Submission) string {
	t.Helper()

	res, err := svc.Ingest(context.Background(), sub)
	require.NoError(t, err)
	require.NotNil(t, res.Comment)
	return res.Comment.ID
}

func TestRootCmd_Use(t *testing.T) {
	root := NewRootCmd(staticOpener(nil))
	assert.Equal(t, "commentsctl", root.Use)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"stats", "list", "show", "approve", "reject", "delete"}, names)
}

func TestStatsCmd(t *testing.T) {
	svc := newService(t)
	seed(t, svc, service.Submission{Message: "hello", PageID: "/p"})
	seed(t, svc, service.Submission{Message: "cheap casino", PageID: "/p"})

	out, err := run(t, staticOpener(svc), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total:    2")
	assert.Contains(t, out, "pending:  1")
	assert.Contains(t, out, "flagged:  1")
}

func TestListCmd(t *testing.T) {
	svc := newService(t)
	id := seed(t, svc, service.Submission{Name: "John", Message: "hello", PageID: "/p1"})
	seed(t, svc, service.Submission{Name: "Ann", Message: "hi", PageID: "/p2"})

	out, err := run(t, staticOpener(svc), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "John")
	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "Total: 2 comments")

	out, err = run(t, staticOpener(svc), "list", "--status", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 comments")

	out, err = run(t, staticOpener(svc), "list", "--page", "/p1")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "John")
	assert.NotContains(t, out, "Ann")
	assert.Contains(t, out, "Total: 1 comments")

	out, err = run(t, staticOpener(svc), "list", "--status", "approved")
	require.NoError(t, err)
	assert.Contains(t, out, "No comments found")

	_, err = run(t, staticOpener(svc), "list", "--status", "archived")
	require.Error(t, err)
}

func TestApproveRejectShow(t *testing.T) {
	svc := newService(t)
	id := seed(t, svc, service.Submission{Name: "John", Message: "hello", PageID: "/p"})

	out, err := run(t, staticOpener(svc), "approve", id, "--moderator", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "is approved")

	items, err := svc.ListPublic(context.Background(), "/p")
	require.NoError(t, err)
	require.Len(t, items, 1)

	out, err = run(t, staticOpener(svc), "reject", id, "-r", "spam")
	require.NoError(t, err)
	assert.Contains(t, out, "is rejected")

	out, err = run(t, staticOpener(svc), "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:  rejected")
	assert.Contains(t, out, "Reason:  spam")
	assert.Contains(t, out, "Moderated by: moderator")
	assert.Contains(t, out, "hello")
}

func TestDeleteCmd(t *testing.T) {
	svc := newService(t)
	id := seed(t, svc, service.Submission{Message: "hello", PageID: "/p"})

	out, err := run(t, staticOpener(svc), "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = run(t, staticOpener(svc), "delete", id)
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = run(t, staticOpener(svc), "show", id)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestCommands_RequireArgs(t *testing.T) {
	for _, name := range []string{"show", "approve", "reject", "delete"} {
		_, err := run(t, staticOpener(newService(t)), name)
		assert.Error(t, err, name)
	}
}

func TestOpenerErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	open := func(context.Context, string) (*service.Service, func() error, error) {
		return nil, nil, boom
	}

	_, err := run(t, open, "stats")
	require.ErrorIs(t, err, boom)
}

// OpenApp с файловым хранилищем: данные видны между запусками.
func TestOpenApp_FileStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	dataPath := filepath.Join(dir, "comments.json")

	yaml := "env: local\nstore:\n  driver: file\n  scope: site\n  file:\n    path: " + dataPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	svc, closeFn, err := OpenApp(context.Background(), cfgPath)
	require.NoError(t, err)
	id := seed(t, svc, service.Submission{Message: "hello", PageID: "/p"})
	require.NoError(t, closeFn())

	out, err := run(t, OpenApp, "--config", cfgPath, "approve", id)
	require.NoError(t, err)
	assert.Contains(t, out, "is approved")

	out, err = run(t, OpenApp, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "approved: 1")
}
