package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/milk9111/cuedispatch/cue"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListingName = "listing.yaml"
	CategoriesName     = "categories.yaml"
)

type BuildOptions struct {
	// Listing is the output path; defaults to DefaultListingName inside the scanned dir.
	Listing string
	Logger  *slog.Logger
}

// BuildResult reports what Build did. Skipped names cue files that could not
// be decoded and were left out of the listing.
type BuildResult struct {
	Listing     string
	Cues        int
	Regenerated []string
	Skipped     []string
	Written     bool
}

// Build scans dir for cue files, gives every cue with an empty or repeated
// ID a fresh one (rewriting that file), and writes the listing if it changed.
func Build(dir string, opts BuildOptions) (BuildResult, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	out := opts.Listing
	if out == "" {
		out = filepath.Join(dir, DefaultListingName)
	}
	res := BuildResult{Listing: out}

	files, err := cueFiles(dir, out)
	if err != nil {
		return res, err
	}

	listing := Listing{}
	catPath := filepath.Join(dir, CategoriesName)
	if _, err := os.Stat(catPath); err == nil {
		cats, err := LoadSpec[map[string]cue.CategorySpec](catPath)
		if err != nil {
			return res, err
		}
		listing.Categories = cats
	}

	seen := make(map[cue.ID]string, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		spec, badID, err := loadCueFile(path)
		if err != nil {
			res.Skipped = append(res.Skipped, rel)
			log.Warn("registry: malformed cue file, skipped", "path", rel, "err", err)
			continue
		}

		if _, dup := seen[spec.ID]; spec.ID.IsZero() || dup || badID {
			spec.ID = cue.NewID()
			if err := rewriteID(path, spec.ID); err != nil {
				return res, err
			}
			res.Regenerated = append(res.Regenerated, rel)
			log.Warn("registry: generated new cue id", "path", rel, "id", spec.ID)
		}
		seen[spec.ID] = rel

		spec.Source = filepath.ToSlash(rel)
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		}
		listing.Cues = append(listing.Cues, spec)
	}
	res.Cues = len(listing.Cues)

	res.Written, err = SaveListing(out, listing)
	if err != nil {
		return res, err
	}
	if res.Written {
		log.Info("registry: listing updated", "path", out, "cues", res.Cues)
	}
	return res, nil
}

func cueFiles(dir, listing string) ([]string, error) {
	skipListing, _ := filepath.Abs(listing)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSpecFile(path) {
			return nil
		}
		if strings.EqualFold(d.Name(), CategoriesName) {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == skipListing {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("registry: scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// loadCueFile decodes one cue file. An id that does not parse is reported
// through badID and decoded as empty, so the caller can assign a new one.
func loadCueFile(path string) (spec cue.Spec, badID bool, err error) {
	doc, err := LoadSpec[yaml.Node](path)
	if err != nil {
		return spec, false, err
	}
	if len(doc.Content) == 0 {
		return spec, false, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value != "id" {
				continue
			}
			v := root.Content[i+1]
			if _, perr := cue.ParseID(v.Value); perr != nil || v.Kind != yaml.ScalarNode {
				badID = true
				root.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
			}
		}
	}
	if err := root.Decode(&spec); err != nil {
		return cue.Spec{}, badID, fmt.Errorf("registry: decode %s: %w", path, err)
	}
	return spec, badID, nil
}

// rewriteID sets the id key in place so the rest of the file keeps its layout.
func rewriteID(path string, id cue.ID) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: load %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("registry: unmarshal %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("registry: %s: %w", path, errNotMapping)
	}

	set := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "id" {
			root.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id.String()}
			set = true
			break
		}
	}
	if !set {
		root.Content = append([]*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "id"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: id.String()},
		}, root.Content...)
	}

	out, err := encodeYAML(&doc)
	if err != nil {
		return fmt.Errorf("registry: marshal %s: %w", path, err)
	}
	if _, err := writeIfChanged(path, out); err != nil {
		return err
	}
	return nil
}

var errNotMapping = errors.New("cue file is not a mapping")
