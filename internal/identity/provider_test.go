package identity

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^user_[0-9a-z]{9}_\d+$`)

func TestGetUserIDIsStable(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewMemoryStore(), nil)

	first, err := p.GetUserID(ctx)
	require.NoError(t, err)
	require.Regexp(t, idPattern, first)

	second, err := p.GetUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestClearUserDataRegenerates(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewMemoryStore(), nil)

	first, err := p.GetUserID(ctx)
	require.NoError(t, err)
	require.NoError(t, p.ClearUserData(ctx))

	second, err := p.GetUserID(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSetUserIDOverwrites(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewMemoryStore(), nil)
	_, err := p.GetUserID(ctx)
	require.NoError(t, err)

	require.NoError(t, p.SetUserID(ctx, "user_abc"))
	id, err := p.GetUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, "user_abc", id)
	require.Error(t, p.SetUserID(ctx, ""))
}

func TestWithoutStoreReturnsSentinel(t *testing.T) {
	p := NewProvider(nil, nil)
	id, err := p.GetUserID(context.Background())
	require.NoError(t, err)
	require.Equal(t, AnonymousUserID, id)
	require.NoError(t, p.ClearUserData(context.Background()))
	require.Error(t, p.SetUserID(context.Background(), "user_x"))
}

func TestGenerateUsesTimestamp(t *testing.T) {
	id, err := Generate(time.UnixMilli(1700000000123))
	require.NoError(t, err)
	require.Regexp(t, `^user_[0-9a-z]{9}_1700000000123$`, id)
}

type brokenStore struct{ MemoryStore }

func (b *brokenStore) Load(context.Context) (string, error) { return "", errors.New("disk on fire") }

func TestLoadFailureIsReported(t *testing.T) {
	p := NewProvider(&brokenStore{}, nil)
	_, err := p.GetUserID(context.Background())
	require.ErrorContains(t, err, "disk on fire")
}

func TestFileStorePersistsAcrossProviders(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "identity.json")

	id, err := NewProvider(NewFileStore(path), nil).GetUserID(ctx)
	require.NoError(t, err)

	again, err := NewProvider(NewFileStore(path), nil).GetUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, id, again)

	store := NewFileStore(path)
	require.NoError(t, store.Delete(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx))
}

func TestResolvePrefersContext(t *testing.T) {
	p := NewProvider(NewMemoryStore(), nil)
	id, err := p.Resolve(WithUserID(context.Background(), "user_ctx"))
	require.NoError(t, err)
	require.Equal(t, "user_ctx", id)

	id, err = p.Resolve(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, "user_ctx", id)
	require.Regexp(t, idPattern, id)

	var none *Provider
	id, err = none.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, AnonymousUserID, id)
}
