package archive

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/pool"
)

// Entry is a single file extracted from an archive.
type Entry struct {
	// Name is the entry's path inside the archive
	Name string

	// Payload is the decompressed content
	Payload []byte
}

// Archive is an opened ZIP container.
type Archive struct {
	names []string
	files map[string]*zip.File
	size  int64
}

// Open parses the central directory of data.
// It fails with an error wrapping errors.ErrCorruptArchive when data is not a
// ZIP container or is truncated.
func Open(data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corrupt("open", "", err)
	}

	a := &Archive{
		files: make(map[string]*zip.File, len(r.File)),
		size:  int64(len(data)),
	}
	for _, f := range r.File {
		if isDir(f) {
			continue
		}
		// A repeated name replaces the earlier entry, as extracting would.
		if _, dup := a.files[f.Name]; !dup {
			a.names = append(a.names, f.Name)
		}
		a.files[f.Name] = f
	}
	return a, nil
}

// Names returns the file entry names in central directory order.
// Directory entries are omitted.
func (a *Archive) Names() []string {
	return append([]string(nil), a.names...)
}

// Len returns the number of file entries.
func (a *Archive) Len() int {
	return len(a.names)
}

// Size returns the size of the archive blob in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

// Read decompresses the named entry fully into memory.
// It is safe to call concurrently for different or identical names.
func (a *Archive) Read(name string) (Entry, error) {
	f, ok := a.files[name]
	if !ok {
		return Entry{}, errors.NewError(errors.CodeArchive, "read", errors.ErrObjectNotFound).WithKey(name)
	}

	rc, err := f.Open()
	if err != nil {
		return Entry{}, corrupt("read", name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	buf := pool.Get(int(min(f.UncompressedSize64, pool.LargeBufferSize+1)))
	defer pool.Put(buf)

	if _, err := io.Copy(buf, rc); err != nil {
		return Entry{}, corrupt("read", name, err)
	}
	return Entry{Name: name, Payload: bytes.Clone(buf.Bytes())}, nil
}

// Entries yields every file entry in central directory order. An entry that
// cannot be read is yielded with its error and iteration continues.
func (a *Archive) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, name := range a.names {
			e, err := a.Read(name)
			if err != nil {
				e = Entry{Name: name}
			}
			if !yield(e, err) {
				return
			}
		}
	}
}

func isDir(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

func corrupt(op, name string, err error) error {
	e := errors.NewError(errors.CodeArchive, op, fmt.Errorf("%w: %w", errors.ErrCorruptArchive, err))
	if name != "" {
		e.WithKey(name)
	}
	return e
}
