package solution

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DescriptorNames are searched, in order, by Find.
var DescriptorNames = []string{"slnlint.toml", "slnlint.yaml", "slnlint.yml"}

// Find walks up from startDir looking for a descriptor file.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range DescriptorNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads a descriptor file. A directory argument is resolved with Find.
func Load(path string) (*Descriptor, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, ok, err := Find(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s: no %s found", path, strings.Join(DescriptorNames, " or "))
		}
		path = found
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var (
		d      *Descriptor
		format string
	)
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".toml":
		format = "toml"
		d, err = DecodeTOML(data)
	case ".yaml", ".yml":
		format = "yaml"
		d, err = DecodeYAML(data)
	default:
		return nil, fmt.Errorf("%s: %w", abs, ErrUnsupportedFormat)
	}
	if err == nil {
		err = checkSchema(data, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	d.Path = abs
	d.Dir = filepath.Dir(abs)
	d.normalize()
	return d, nil
}

// DecodeTOML parses a descriptor. Unknown keys are rejected.
func DecodeTOML(data []byte) (*Descriptor, error) {
	var d Descriptor
	meta, err := toml.Decode(string(data), &d)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("project") {
		return nil, errors.New("missing [[project]]")
	}
	return &d, nil
}

// DecodeYAML parses a descriptor. Unknown keys are rejected.
func DecodeYAML(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(d.Projects) == 0 {
		return nil, errors.New("missing projects")
	}
	return &d, nil
}
