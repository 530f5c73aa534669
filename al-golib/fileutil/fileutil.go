package fileutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
)

// NamedWriteCloser is a file-like object extending io.WriteCloser with a
// string Name() similar to os.File.Name()
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// NewReader opens a path on the given filesystem for reading.
func NewReader(fs afero.Fs, path string) (io.ReadCloser, error) {
	return fs.Open(path)
}

// NewBufferedWriter opens a path for writing, creating parent directories as
// needed.
func NewBufferedWriter(fs afero.Fs, path string) (NamedWriteCloser, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return fs.Create(path)
}

// ReadFile reads the contents of a path.
func ReadFile(fs afero.Fs, path string) ([]byte, error) {
	r, err := NewReader(fs, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// Exists reports whether the path exists on the filesystem.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// ListDir returns the fully qualified names for the members of the provided
// directory.
func ListDir(fs afero.Fs, path string) ([]string, error) {
	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading dir %s: %v", path, err)
	}

	var paths []string
	for _, entry := range entries {
		paths = append(paths, filepath.Join(path, entry.Name()))
	}
	return paths, nil
}

// Pending is a file staged next to its final location. The final path stays
// untouched until Commit renames the staged file over it.
type Pending struct {
	fs    afero.Fs
	tmp   string
	final string
}

// WritePending stages data for path in a temp file in the same directory.
func WritePending(fs afero.Fs, path string, data []byte) (*Pending, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return nil, errors.Wrapf(err, "error staging %s", path)
	}
	return &Pending{fs: fs, tmp: tmp, final: path}, nil
}

// Commit renames the staged file to its final path.
func (p *Pending) Commit() error {
	return errors.WrapfOrNil(p.fs.Rename(p.tmp, p.final), "error committing %s", p.final)
}

// Discard removes the staged file, leaving the final path untouched.
func (p *Pending) Discard() error {
	err := p.fs.Remove(p.tmp)
	if err != nil && os.IsNotExist(errors.Cause(err)) {
		return nil
	}
	return err
}

// Path returns the final path the staged file will commit to.
func (p *Pending) Path() string {
	return p.final
}
