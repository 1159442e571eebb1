package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/milk9111/cuedispatch/cue"
	"gopkg.in/yaml.v3"
)

// Listing is the flat, on-disk form of a registry.
type Listing struct {
	Categories map[string]cue.CategorySpec `yaml:"categories,omitempty"`
	Cues       []cue.Spec                  `yaml:"cues"`

	// Malformed holds the entries LoadListing could not decode.
	Malformed []Malformed `yaml:"-"`
}

// Malformed is one listing entry that failed to decode. New logs and skips it.
type Malformed struct {
	Section string
	Entry   string
	Line    int
	Err     error
}

type rawListing struct {
	Categories map[string]yaml.Node `yaml:"categories"`
	Cues       []yaml.Node          `yaml:"cues"`
}

// LoadSpec decodes a YAML file into T.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := os.ReadFile(filename)
	if err != nil {
		return zero, fmt.Errorf("registry: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("registry: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadListing reads a listing file. Only a file that is not a listing at all
// is an error; entries that fail to decode end up in Malformed.
func LoadListing(path string) (Listing, error) {
	raw, err := LoadSpec[rawListing](path)
	if err != nil {
		return Listing{}, err
	}

	var listing Listing
	names := make([]string, 0, len(raw.Categories))
	for name := range raw.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		node := raw.Categories[name]
		var cat cue.CategorySpec
		if err := node.Decode(&cat); err != nil {
			listing.Malformed = append(listing.Malformed, Malformed{Section: "categories", Entry: name, Line: node.Line, Err: err})
			continue
		}
		if listing.Categories == nil {
			listing.Categories = make(map[string]cue.CategorySpec, len(names))
		}
		listing.Categories[name] = cat
	}

	for i := range raw.Cues {
		node := &raw.Cues[i]
		var spec cue.Spec
		if err := node.Decode(&spec); err != nil {
			entry := strconv.Itoa(i)
			if name := scalarField(node, "name"); name != "" {
				entry += " (" + name + ")"
			}
			listing.Malformed = append(listing.Malformed, Malformed{Section: "cues", Entry: entry, Line: node.Line, Err: err})
			continue
		}
		listing.Cues = append(listing.Cues, spec)
	}
	return listing, nil
}

func scalarField(node *yaml.Node, key string) string {
	if node.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key && node.Content[i+1].Kind == yaml.ScalarNode {
			return node.Content[i+1].Value
		}
	}
	return ""
}

// SaveListing writes the listing and reports whether the file changed.
func SaveListing(path string, listing Listing) (bool, error) {
	data, err := encodeYAML(listing)
	if err != nil {
		return false, fmt.Errorf("registry: marshal listing: %w", err)
	}
	return writeIfChanged(path, data)
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeIfChanged(path string, data []byte) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("registry: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("registry: write %s: %w", path, err)
	}
	return true, nil
}
