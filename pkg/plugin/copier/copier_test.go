package copier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/journal"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/platform"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

func loadSettings(t *testing.T, base, doc string) *settings.BuildSettings {
	t.Helper()
	config := filepath.Join(base, "build.yaml")
	raw, err := settings.Decode(config, []byte(doc))
	require.NoError(t, err)

	s, err := settings.From(raw, config, settings.LoadOptions{Target: platform.Linux, Plugins: []string{Name}})
	require.NoError(t, err)
	return s
}

func TestProcessCleansUpAfterItself(t *testing.T) {
	base := filepath.Join(t.TempDir(), "does", "not", "exist")
	s := loadSettings(t, base, `
name: test
srcs: ["copy:a.txt", "copy:b.png", "copy:subdir/c.cpp"]
`)

	bus := watcher.NewBus(logger.Noop())
	p := New(Config{}, logger.Noop())

	reset, err := p.Process(context.Background(), bus, s)
	require.NoError(t, err)
	assert.Equal(t, 3, bus.Len())

	reset()
	assert.Equal(t, 0, bus.Len())
}

func TestCopyAndDelete(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "assets", "logo.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0644))

	s := loadSettings(t, base, `
name: site
outDir: out
srcs: ["copy:assets/logo.txt"]
`)
	dst := filepath.Join(base, "out", "assets", "logo.txt")

	store := journal.NewMemoryStore()
	bus := watcher.NewBus(logger.Noop())
	p := New(Config{Journal: store}, logger.Noop())
	reset, err := p.Process(context.Background(), bus, s)
	require.NoError(t, err)
	defer reset()

	bus.Emit(context.Background(), event.Now(event.AddFile, src))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, os.WriteFile(src, []byte("v2"), 0644))
	bus.Emit(context.Background(), event.Now(event.ChangeFile, src))
	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	bus.Emit(context.Background(), event.Now(event.DeleteFile, src))
	assert.NoFileExists(t, dst)

	records, err := store.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, journal.ActionDelete, records[0].Action)
	assert.Equal(t, journal.ActionCopy, records[2].Action)
	assert.Equal(t, "site", records[2].Target)
}

func TestCopyFailureIsRecorded(t *testing.T) {
	base := t.TempDir()
	s := loadSettings(t, base, "name: x\nsrcs: [\"copy:missing.txt\"]\n")

	store := journal.NewMemoryStore()
	bus := watcher.NewBus(logger.Noop())
	reset, err := New(Config{Journal: store}, logger.Noop()).Process(context.Background(), bus, s)
	require.NoError(t, err)
	defer reset()

	bus.Emit(context.Background(), event.Now(event.ChangeFile, filepath.Join(base, "missing.txt")))

	failed, _ := store.List(journal.Filter{Status: journal.StatusFailed})
	assert.Len(t, failed, 1)
}

func TestPluginIdentity(t *testing.T) {
	p := New(Config{}, nil)
	assert.Equal(t, "copy", p.Name())
	assert.Empty(t, p.ProtocolExtensions())
	assert.NoError(t, p.Cleanup())
}
