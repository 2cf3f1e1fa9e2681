package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

func TestStore_PutGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	data := []byte("payload")
	require.NoError(t, s.Put(ctx, "bucket", "a/b.txt", data))

	// Mutating the caller's slice must not change the stored object
	data[0] = 'X'

	got, err := s.Get(ctx, "bucket", "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	got[0] = 'Y'
	again, err := s.Get(ctx, "bucket", "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again)
}

func TestStore_GetNotFound(t *testing.T) {
	s := New()
	s.CreateBucket("bucket")

	_, err := s.Get(context.Background(), "bucket", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsObjectNotFound(err))
}

func TestStore_Exists(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "bucket", "k", []byte("v")))

	ok, err := s.Exists(ctx, "bucket", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "bucket", "other")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Exists(ctx, "nobucket", "k")
	assert.ErrorIs(t, err, errors.ErrBucketNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "bucket", "k", []byte("one")))
	require.NoError(t, s.Put(ctx, "bucket", "k", []byte("two")))

	got, err := s.Get(ctx, "bucket", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
	assert.Equal(t, []string{"k"}, s.Keys("bucket"))
}

func TestStore_List(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(WithPageSize(2), WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, "bucket", fmt.Sprintf("ds/%d.txt", i), []byte("abc")))
	}
	require.NoError(t, s.Put(ctx, "bucket", "other/x.txt", []byte("x")))

	t.Run("all pages", func(t *testing.T) {
		objs, err := s.List(ctx, "bucket", "ds/")
		require.NoError(t, err)
		require.Len(t, objs, 5)
		assert.Equal(t, "ds/0.txt", objs[0].Key)
		assert.Equal(t, "ds/4.txt", objs[4].Key)
		assert.Equal(t, int64(3), objs[0].Size)
		assert.Equal(t, fixed, objs[0].LastModified)
		assert.NotEmpty(t, objs[0].ETag)
	})

	t.Run("bounded", func(t *testing.T) {
		objs, err := s.List(ctx, "bucket", "ds/", objectstore.WithMaxKeys(1))
		require.NoError(t, err)
		require.Len(t, objs, 1)
		assert.Equal(t, "ds/0.txt", objs[0].Key)
	})

	t.Run("empty prefix match", func(t *testing.T) {
		objs, err := s.List(ctx, "bucket", "nothing/")
		require.NoError(t, err)
		assert.Empty(t, objs)
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := s.List(ctx, "nobucket", "")
		assert.ErrorIs(t, err, errors.ErrBucketNotFound)
	})
}

func TestStore_Cancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Put(ctx, "bucket", "k", nil))
	_, err := s.Get(ctx, "bucket", "k")
	assert.ErrorIs(t, err, context.Canceled)
}
