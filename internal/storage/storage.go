package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Scheme is the only store location scheme understood by Open.
const Scheme = "file://"

var (
	// ErrUnsupportedScheme indicates the store location does not use the file:/// form.
	ErrUnsupportedScheme = errors.New("unsupported policy store scheme")
)

// Store is the read-only view of a policy directory tree.
type Store interface {
	fs.FS
	fs.StatFS
}

// Open returns the directory tree addressed by a location of the form
// file:///absolute/path. Nothing is touched on disk, so a missing directory
// simply yields a store in which every lookup reports fs.ErrNotExist.
func Open(location string) (Store, error) {
	root, err := Root(location)
	if err != nil {
		return nil, err
	}

	fsys, ok := os.DirFS(root).(Store)
	if !ok {
		return nil, fmt.Errorf("directory store for %q does not support stat", root)
	}
	return fsys, nil
}

// Root extracts the absolute directory from a file:/// location.
func Root(location string) (string, error) {
	rest, ok := strings.CutPrefix(location, Scheme)
	if !ok || !strings.HasPrefix(rest, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, location)
	}
	return path.Clean(rest), nil
}

// Join builds a store-relative name from path segments. It reports false
// when a segment is empty or not a single valid path element.
func Join(segments ...string) (string, bool) {
	for _, segment := range segments {
		if segment == "" || strings.Contains(segment, "/") {
			return "", false
		}
	}

	name := path.Join(segments...)
	if !fs.ValidPath(name) || name != strings.Join(segments, "/") {
		return "", false
	}
	return name, true
}
