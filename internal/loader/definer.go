package loader

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	m "gooze.dev/pkg/testbench/internal/model"
)

// Definer turns fetched code into a unit.
type Definer interface {
	Define(name string, code []byte) (*m.Unit, error)
}

// ManifestDefiner defines units whose code is a YAML manifest.
type ManifestDefiner struct{}

// Define parses code as a manifest and checks that it declares name.
func (ManifestDefiner) Define(name string, code []byte) (*m.Unit, error) {
	var manifest m.Manifest
	if err := yaml.Unmarshal(code, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest of %s: %w", name, err)
	}

	if manifest.Name == "" {
		manifest.Name = name
	}

	if manifest.Name != name {
		return nil, fmt.Errorf("manifest declares %s, expected %s", manifest.Name, name)
	}

	return &m.Unit{
		Name:     name,
		Origin:   m.OriginRemote,
		Digest:   Digest(code),
		Code:     code,
		Manifest: &manifest,
	}, nil
}

// Digest fingerprints unit code.
func Digest(code []byte) string {
	return strconv.FormatUint(xxhash.Sum64(code), 16)
}
