package format

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"

	"gopkg.in/yaml.v3"
)

// ManifestSuffix is appended to a data file path to find its attribute
// manifest.
const ManifestSuffix = ".attrs.yaml"

var errNoManifest = errors.New("no attribute manifest found")

// Manifest is a YAML dump of a data file's global attributes, as produced
// next to the file by the ingest tooling.
type Manifest struct {
	Path             string         `yaml:"path"`
	GlobalAttributes map[string]any `yaml:"global_attributes"`
}

// Open returns the file for path. A path ending in .yaml or .yml is read as
// a manifest; any other path is resolved through its sidecar manifest.
func Open(path string) (handler.File, error) {
	manifestPath := path
	if !isManifest(path) {
		manifestPath = path + ManifestSuffix
		if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s", errNoManifest, path)
		}
	}

	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	filePath := m.Path
	if filePath == "" {
		filePath = strings.TrimSuffix(manifestPath, ManifestSuffix)
	}

	return NewAttributeFile(filePath, m.Attributes()), nil
}

// Opener is the handler.Opener backed by Open.
var Opener = handler.OpenerFunc(Open)

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Attributes flattens the manifest attributes to strings. Lists are joined
// with spaces, the way netCDF tools print array attributes.
func (m *Manifest) Attributes() types.Attributes {
	attrs := make(types.Attributes, len(m.GlobalAttributes))
	for k, v := range m.GlobalAttributes {
		attrs[k] = stringify(v)
	}
	return attrs
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(val)
	}
}

func isManifest(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
