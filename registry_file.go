package bluequery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadRegistryFile reads a parameter catalog from a YAML (.yaml, .yml) or
// TOML (.toml) file and compiles it.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read registry")
	}

	spec, err := ParseRegistry(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return NewRegistry(spec)
}

// ParseRegistry decodes a catalog. ext selects the format and includes the dot.
func ParseRegistry(data []byte, ext string) (RegistrySpec, error) {
	var spec RegistrySpec
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &spec); err != nil {
			return spec, err
		}
	default:
		return spec, errors.Errorf("unsupported registry format %q", ext)
	}
	return spec, nil
}
