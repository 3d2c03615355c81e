package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for missing artifacts. It matches fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("store: artifact not found: %w", fs.ErrNotExist)

	// ErrInvalidName is returned for artifact names that are empty, absolute,
	// or contain "." or ".." elements or backslashes.
	ErrInvalidName = errors.New("store: invalid artifact name")
)

// ArtifactType is the media type of saved models.
const ArtifactType = "application/x-msgpack"

// Info describes a stored artifact.
type Info struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Artifacts keeps model artifacts under slash separated names such as
// "saved/dx7_sample". Implementations must be safe for concurrent use.
type Artifacts interface {
	// Open reads the named artifact or fails with ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create returns a writer whose content replaces the named artifact when
	// Close succeeds. Until then readers see the previous version.
	Create(ctx context.Context, name string) (Upload, error)

	// Stat describes the named artifact or fails with ErrNotFound.
	Stat(ctx context.Context, name string) (Info, error)

	// Remove deletes the named artifact. Missing artifacts are not an error.
	Remove(ctx context.Context, name string) error
}

// Upload is a pending artifact write.
type Upload interface {
	io.WriteCloser
	// Abort discards the written content and leaves the artifact untouched.
	Abort() error
}

// CheckName validates an artifact name.
func CheckName(name string) error {
	if name == "." || !fs.ValidPath(name) || strings.ContainsRune(name, '\\') {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save streams the output of write into the named artifact and describes
// the result. A failing write leaves the previous version in place.
func Save(ctx context.Context, a Artifacts, name string, write func(io.Writer) error) (Info, error) {
	up, err := a.Create(ctx, name)
	if err != nil {
		return Info{}, fmt.Errorf("store: save %s: %w", name, err)
	}
	if err := write(up); err != nil {
		if aerr := up.Abort(); aerr != nil {
			err = errors.Join(err, aerr)
		}
		return Info{}, fmt.Errorf("store: save %s: %w", name, err)
	}
	if err := up.Close(); err != nil {
		return Info{}, fmt.Errorf("store: save %s: %w", name, err)
	}
	info, err := a.Stat(ctx, name)
	if err != nil {
		return Info{}, fmt.Errorf("store: save %s: %w", name, err)
	}
	return info, nil
}

// Load passes the content of the named artifact to read.
func Load(ctx context.Context, a Artifacts, name string, read func(io.Reader) error) error {
	r, err := a.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("store: load %s: %w", name, err)
	}
	defer r.Close()
	if err := read(r); err != nil {
		return fmt.Errorf("store: load %s: %w", name, err)
	}
	return nil
}
