package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Loader handles loading and parsing of a catalog YAML file.
// An empty path selects the catalog compiled into the binary.
type Loader struct {
	filePath string
}

// NewLoader creates a new catalog loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the configured file path ("" for the embedded catalog).
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the catalog file
func (l *Loader) Load() (File, error) {
	data := defaultCatalog
	if l.filePath != "" {
		var err error
		data, err = os.ReadFile(l.filePath)
		if err != nil {
			return File{}, fmt.Errorf("failed to read catalog file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}
	return f, nil
}
