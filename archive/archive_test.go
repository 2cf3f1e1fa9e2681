package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/testutil"
)

func TestOpen_ListsEntriesInOrder(t *testing.T) {
	data := testutil.BuildZip(
		testutil.ZipEntry{Name: "train/"},
		testutil.ZipEntry{Name: "train/images/a.jpg", Payload: []byte("jpeg")},
		testutil.ZipEntry{Name: "train/labels/a.txt", Payload: []byte("0 0.5 0.5 0.1 0.1\n")},
		testutil.ZipEntry{Name: "README.roboflow.txt", Payload: []byte("hello")},
	)

	a, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"train/images/a.jpg", "train/labels/a.txt", "README.roboflow.txt"}, a.Names())
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, int64(len(data)), a.Size())
}

func TestArchive_Read(t *testing.T) {
	large := make([]byte, 3*1024*1024)
	for i := range large {
		large[i] = byte(i % 251)
	}
	data := testutil.BuildZip(
		testutil.ZipEntry{Name: "a.txt", Payload: []byte("0 1 1 1 1")},
		testutil.ZipEntry{Name: "empty.txt"},
		testutil.ZipEntry{Name: "big.bin", Payload: large},
	)

	a, err := Open(data)
	require.NoError(t, err)

	e, err := a.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", e.Name)
	assert.Equal(t, []byte("0 1 1 1 1"), e.Payload)

	e, err = a.Read("empty.txt")
	require.NoError(t, err)
	assert.Empty(t, e.Payload)

	e, err = a.Read("big.bin")
	require.NoError(t, err)
	assert.Equal(t, large, e.Payload)
}

func TestArchive_ReadReturnsIndependentCopies(t *testing.T) {
	a, err := Open(testutil.BuildZip(testutil.ZipEntry{Name: "a.txt", Payload: []byte("abc")}))
	require.NoError(t, err)

	first, err := a.Read("a.txt")
	require.NoError(t, err)
	first.Payload[0] = 'x'

	second, err := a.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), second.Payload)
}

func TestArchive_ReadUnknown(t *testing.T) {
	a, err := Open(testutil.BuildZip(testutil.ZipEntry{Name: "a.txt", Payload: []byte("abc")}))
	require.NoError(t, err)

	_, err = a.Read("b.txt")
	require.Error(t, err)
	assert.Equal(t, errors.CodeArchive, errors.CodeOf(err))
}

func TestOpen_Corrupt(t *testing.T) {
	valid := testutil.BuildZip(testutil.ZipEntry{Name: "a.txt", Payload: []byte("abc")})

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a zip", data: []byte("this is not an archive at all")},
		{name: "truncated", data: valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrCorruptArchive)
			assert.Equal(t, errors.CodeArchive, errors.CodeOf(err))
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestOpen_EmptyArchive(t *testing.T) {
	a, err := Open(testutil.BuildZip())
	require.NoError(t, err)
	assert.Empty(t, a.Names())
}

func TestArchive_Entries(t *testing.T) {
	a, err := Open(testutil.BuildZip(
		testutil.ZipEntry{Name: "b.txt", Payload: []byte("b")},
		testutil.ZipEntry{Name: "dir/"},
		testutil.ZipEntry{Name: "a.txt", Payload: []byte("a")},
	))
	require.NoError(t, err)

	var got []Entry
	for e, err := range a.Entries() {
		require.NoError(t, err)
		got = append(got, e)
	}
	assert.Equal(t, []Entry{
		{Name: "b.txt", Payload: []byte("b")},
		{Name: "a.txt", Payload: []byte("a")},
	}, got)

	count := 0
	for range a.Entries() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
