package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir keeps artifacts as files below a local directory. Writes go to a
// temporary file that is renamed into place on Close.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at root, creating the directory if needed.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: abs}, nil
}

// Root is the absolute directory backing d.
func (d *Dir) Root() string { return d.root }

func (d *Dir) file(name string) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

func (d *Dir) Open(_ context.Context, name string) (io.ReadCloser, error) {
	file, err := d.file(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Dir) Create(_ context.Context, name string) (Upload, error) {
	file, err := d.file(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+"-*")
	if err != nil {
		return nil, err
	}
	return &fileUpload{File: tmp, dst: file}, nil
}

func (d *Dir) Stat(_ context.Context, name string) (Info, error) {
	file, err := d.file(name)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Info{}, err
	}
	return Info{Name: name, Size: st.Size(), Modified: st.ModTime()}, nil
}

func (d *Dir) Remove(_ context.Context, name string) error {
	file, err := d.file(name)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type fileUpload struct {
	*os.File
	dst string
}

func (u *fileUpload) Close() error {
	if err := u.File.Close(); err != nil {
		os.Remove(u.Name())
		return err
	}
	if err := os.Rename(u.Name(), u.dst); err != nil {
		os.Remove(u.Name())
		return err
	}
	return nil
}

func (u *fileUpload) Abort() error {
	u.File.Close()
	return os.Remove(u.Name())
}

var _ Artifacts = (*Dir)(nil)
