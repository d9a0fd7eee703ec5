package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"
)

var ErrDuplicateEntry = errors.New("duplicate archive entry")

// Builder collects named files into a single deflated zip archive.
type Builder struct {
	buf      bytes.Buffer
	zw       *zip.Writer
	names    map[string]struct{}
	modified time.Time
	closed   bool
}

func NewBuilder(modified time.Time) *Builder {
	b := &Builder{names: make(map[string]struct{}), modified: modified}
	b.zw = zip.NewWriter(&b.buf)
	return b
}

func (b *Builder) Add(name string, data []byte) error {
	if b.closed {
		return errors.New("archive already finalized")
	}
	if _, ok := b.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}

	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if !b.modified.IsZero() {
		header.Modified = b.modified
	}
	w, err := b.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	b.names[name] = struct{}{}
	return nil
}

func (b *Builder) Len() int {
	return len(b.names)
}

// Bytes finalizes the archive. No entries can be added afterwards.
func (b *Builder) Bytes() ([]byte, error) {
	if !b.closed {
		if err := b.zw.Close(); err != nil {
			return nil, fmt.Errorf("close archive: %w", err)
		}
		b.closed = true
	}
	return b.buf.Bytes(), nil
}
