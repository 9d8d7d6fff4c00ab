package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"

	"gooze.dev/pkg/testbench/internal/loader"
)

// UnitExt is the extension of unit manifests on disk.
const UnitExt = ".yaml"

// FSCodeSource serves units stored as <name>.yaml files under a root
// directory.
type FSCodeSource struct {
	fs   afero.Fs
	root string
}

// NewFSCodeSource creates a code source reading from root on fsys.
func NewFSCodeSource(fsys afero.Fs, root string) *FSCodeSource {
	return &FSCodeSource{fs: fsys, root: root}
}

// Key implements loader.CodeSource.
func (s *FSCodeSource) Key() string {
	return "fs:" + s.root
}

// GetUnit implements loader.CodeSource.
func (s *FSCodeSource) GetUnit(ctx context.Context, _ string, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := UnitPath(s.root, name)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, loader.ErrUnitNotFound)
		}

		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	return data, nil
}

// UnitPath returns the manifest path of name under root. Names must not
// escape root.
func UnitPath(root, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.Contains(name, `\`) || path.IsAbs(name) {
		return "", fmt.Errorf("invalid unit name %q", name)
	}

	return path.Join(root, name+UnitExt), nil
}
