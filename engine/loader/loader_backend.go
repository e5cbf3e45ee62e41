package loader

import (
	"io"
	"io/fs"
	"os"
)

// loaderBackend abstracts asset file access so loaders can read from the
// operating system filesystem or an embedded fs.FS.
type loaderBackend interface {
	// Open opens an asset file for reading. The caller closes it.
	Open(path string) (io.ReadCloser, error)
}

// fileLoaderBackend reads assets from the operating system filesystem.
type fileLoaderBackend struct{}

var _ loaderBackend = &fileLoaderBackend{}

func newFileLoaderBackend() loaderBackend {
	return &fileLoaderBackend{}
}

func (b *fileLoaderBackend) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// fsLoaderBackend reads assets from an fs.FS, typically an embed.FS.
type fsLoaderBackend struct {
	fsys fs.FS
}

var _ loaderBackend = &fsLoaderBackend{}

func newFSLoaderBackend(fsys fs.FS) loaderBackend {
	return &fsLoaderBackend{fsys: fsys}
}

func (b *fsLoaderBackend) Open(path string) (io.ReadCloser, error) {
	return b.fsys.Open(path)
}
