package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(LocalConfig{BasePath: t.TempDir(), URLPrefix: "/archives/"})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "sessions/R1/2.json", strings.NewReader(`{"b":2}`), -1, "application/json"))
	require.NoError(t, s.Put(ctx, "sessions/R1/1.json", strings.NewReader(`{"a":1}`), -1, "application/json"))
	require.NoError(t, s.Put(ctx, "sessions/R2/1.json", strings.NewReader(`{}`), -1, ""))

	objs, err := s.List(ctx, "sessions/R1/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, "sessions/R1/1.json", objs[0].Key)
	require.EqualValues(t, 7, objs[0].Size)

	r, err := s.Get(ctx, "sessions/R1/2.json")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	require.Equal(t, `{"b":2}`, string(body))

	url, err := s.URL(ctx, "sessions/R1/1.json", 0)
	require.NoError(t, err)
	require.Equal(t, "/archives/sessions/R1/1.json", url)

	_, err = s.Get(ctx, "sessions/R9/1.json")
	require.True(t, errors.Is(err, ErrNotFound))

	empty, err := s.List(ctx, "sessions/none/")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	for _, key := range []string{"../x", "..", "/etc/passwd", ""} {
		require.Error(t, s.Put(context.Background(), key, strings.NewReader("x"), -1, ""), key)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "ftp"})
	require.Error(t, err)
}
