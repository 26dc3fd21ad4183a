package preprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-xyz/timed/pkg/preprocessor/types"
	"github.com/kestrel-xyz/timed/pkg/timing"
)

// ManifestFileName is looked up at the root of the tree being
// instrumented.
const ManifestFileName = ".timed.yml"

// Manifest is the optional per-project configuration file. It scopes
// which files are eligible and supplies defaults for the directives.
type Manifest struct {
	// Include limits instrumentation to files matching these patterns,
	// relative to the tree root. Empty means every file is eligible.
	Include []string `yaml:"include"`

	// Exclude removes files from consideration and wins over Include.
	Exclude []string `yaml:"exclude"`

	// Level is the default report level for directives that do not set
	// one: "info" or "debug".
	Level string `yaml:"level"`

	// Tracing makes generated wrappers enter a span scope around the
	// timed region.
	Tracing bool `yaml:"tracing"`
}

// LoadManifest reads and validates a manifest. Unknown fields are an
// error.
func LoadManifest(filePath string) (*Manifest, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filePath, err)
	}

	if _, err := m.Defaults(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", filePath, err)
	}
	return &m, nil
}

// FindManifest looks for .timed.yml at root. A missing manifest is not
// an error; it returns nil.
func FindManifest(root string) (*Manifest, error) {
	filePath := filepath.Join(root, ManifestFileName)
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return LoadManifest(filePath)
}

// ShouldInstrument reports whether the file at rel (slash or native
// separators, relative to the tree root) is eligible.
func (m *Manifest) ShouldInstrument(rel string) bool {
	if m == nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range m.Exclude {
		if matchPattern(pattern, rel) {
			return false
		}
	}
	if len(m.Include) == 0 {
		return true
	}
	for _, pattern := range m.Include {
		if matchPattern(pattern, rel) {
			return true
		}
	}
	return false
}

// Defaults is the baseline config directives start from.
func (m *Manifest) Defaults() (types.InstrumentationConfig, error) {
	cfg := types.InstrumentationConfig{Level: timing.LevelInfo}
	if m == nil || m.Level == "" {
		return cfg, nil
	}
	level, err := timing.ParseLevel(m.Level)
	if err != nil {
		return cfg, err
	}
	cfg.Level = level
	return cfg, nil
}

// matchPattern matches a glob against the full relative path and its
// base name; a bare directory path matches everything under it.
func matchPattern(pattern, rel string) bool {
	if ok, _ := path.Match(pattern, rel); ok {
		return true
	}
	if ok, _ := path.Match(pattern, path.Base(rel)); ok {
		return true
	}
	dir := strings.TrimSuffix(pattern, "/")
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}
