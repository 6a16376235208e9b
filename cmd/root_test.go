package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/config"
	"github.com/ytsubs/ytsubs/internal/storage"
	"github.com/ytsubs/ytsubs/internal/store"
)

type mockApp struct {
	cfg    config.Config
	closed bool
}

func (m *mockApp) Close()                    { m.closed = true }
func (m *mockApp) Config() config.Config     { return m.cfg }
func (m *mockApp) Logger() *zap.Logger       { return zap.NewNop() }
func (m *mockApp) Store() *store.Store       { return nil }
func (m *mockApp) Archive() storage.Provider { return storage.NoOpProvider{} }

func TestResolveAppMissing(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}

func TestResolveAppFromContext(t *testing.T) {
	m := &mockApp{}
	ctx := context.WithValue(context.Background(), appKey, App(m))

	got, err := resolveApp(ctx)
	require.NoError(t, err)
	assert.Same(t, App(m), got)
}

func TestOpenCommandUsesConfiguredPath(t *testing.T) {
	m := &mockApp{cfg: config.Config{
		Feed: config.FeedConfig{OutputPath: "data/feed.html"},
	}}

	var opened string
	orig := openFeedPage
	openFeedPage = func(path string) error {
		opened = path
		return nil
	}
	defer func() { openFeedPage = orig }()

	cmd := newOpenCmd()
	cmd.SetContext(context.WithValue(context.Background(), appKey, App(m)))

	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Equal(t, "data/feed.html", opened)
}
