package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAdmins(t *testing.T, path, body string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestFileProvider_LoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.yaml")
	writeAdmins(t, path, "systemAdmins:\n  - root\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	ok, err := p.IsGlobalAdmin(ctx, "root")
	require.NoError(t, err)
	assert.True(t, ok)

	writeAdmins(t, path, "systemAdmins:\n  - ops\n")

	assert.Eventually(t, func() bool {
		ok, _ := p.IsGlobalAdmin(ctx, "ops")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	ok, _ = p.IsGlobalAdmin(ctx, "root")
	assert.False(t, ok)
}

func TestFileProvider_KeepsListOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.yaml")
	writeAdmins(t, path, "systemAdmins: [root]\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	require.Error(t, func() error {
		writeAdmins(t, path, "systemAdmins: [unclosed\n")
		return p.Reload()
	}())

	ok, _ := p.IsGlobalAdmin(context.Background(), "root")
	assert.True(t, ok)
}

func TestFileProvider_KeepsListWhenFileEmptied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.yaml")
	writeAdmins(t, path, "systemAdmins: [root]\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	// truncate in place, the first half of a non-atomic save
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	err = p.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lists no system admins")

	ok, _ := p.IsGlobalAdmin(context.Background(), "root")
	assert.True(t, ok)

	writeAdmins(t, path, "systemAdmins: [ops]\n")
	assert.Eventually(t, func() bool {
		ok, _ := p.IsGlobalAdmin(context.Background(), "ops")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewFileProvider_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.yaml")
	writeAdmins(t, path, "systemAdmins: []\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Zero(t, p.Len())
}

func TestNewFileProvider_Missing(t *testing.T) {
	_, err := NewFileProvider(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read admin file")
}
