package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	m "gooze.dev/pkg/testbench/internal/model"
)

// ProgramStore loads test programs.
//
//go:generate mockery --name=ProgramStore --output=./mocks --outpkg=mocks
type ProgramStore interface {
	Load(paths []m.Path) ([]*m.Program, error)
}

// YAMLProgramStore reads programs from YAML files. A file may hold several
// documents, one program each; directories are walked for .yaml and .yml
// files.
type YAMLProgramStore struct {
	fs afero.Fs
}

// NewYAMLProgramStore creates a store on fsys.
func NewYAMLProgramStore(fsys afero.Fs) *YAMLProgramStore {
	return &YAMLProgramStore{fs: fsys}
}

// Load implements ProgramStore.
func (s *YAMLProgramStore) Load(paths []m.Path) ([]*m.Program, error) {
	var programs []*m.Program

	for _, p := range paths {
		files, err := s.files(string(p))
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			loaded, err := s.loadFile(file)
			if err != nil {
				return nil, err
			}

			programs = append(programs, loaded...)
		}
	}

	return programs, nil
}

func isProgramFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	return ext == ".yaml" || ext == ".yml"
}

func (s *YAMLProgramStore) files(root string) ([]string, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string

	err = afero.Walk(s.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && isProgramFile(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(files)

	return files, nil
}

func (s *YAMLProgramStore) loadFile(file string) ([]*m.Program, error) {
	data, err := afero.ReadFile(s.fs, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var programs []*m.Program

	for i := 0; ; i++ {
		var p m.Program

		err := decoder.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}

		if len(p.Steps) == 0 {
			continue
		}

		if p.Name == "" {
			p.Name = fmt.Sprintf("%s#%d", base, i+1)
		}

		programs = append(programs, &p)
	}

	return programs, nil
}

// SaveProgram writes p to path as YAML.
func (s *YAMLProgramStore) SaveProgram(path string, p *m.Program) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode program %s: %w", p.Name, err)
	}

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
