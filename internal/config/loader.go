package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source locates where a config value came from.
type Source struct {
	Kind   SourceKind
	Name   string // for defaults
	File   string
	Line   int
	Column int
}

// LoadResult is an effective config plus the provenance of every key set by a
// file.
type LoadResult struct {
	Config  *Config
	Sources map[string]Source // dotted key -> file position of the winning value
	Files   []string          // in merge order, includes before their parent
}

// DefaultConfigPath is ~/.config/spaces/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "spaces", "config.yaml"), nil
}

// LoadWithSources loads the config at DefaultConfigPath.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path (and its includes) over the defaults. A missing file
// yields the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	res := &LoadResult{Sources: map[string]Source{}}
	var raw RawConfig

	if _, err := os.Stat(path); err == nil {
		l := &fileLoader{merged: map[string]bool{}}
		top, err := l.load(path, nil)
		if err != nil {
			return nil, err
		}
		raw = top.raw
		res.Sources = top.sources
		res.Files = top.files
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, res.Sources)
	}
	res.Config = cfg
	return res, nil
}

// layer is one file merged with everything it includes.
type layer struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
}

func (l *layer) over(other layer) {
	l.raw = l.raw.merge(other.raw)
	maps.Copy(l.sources, other.sources)
	l.files = append(l.files, other.files...)
}

type fileLoader struct {
	// merged holds canonical paths already applied; a file reached twice
	// through different includes counts once.
	merged map[string]bool
}

// load reads path, then its includes in order, and lays the file itself on
// top. chain is the include path that led here.
func (l *fileLoader) load(path string, chain []string) (layer, error) {
	out := layer{sources: map[string]Source{}}

	canon := canonicalPath(path)
	if slices.Contains(chain, canon) {
		return out, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(chain, " -> "), canon)
	}
	if l.merged[canon] {
		return out, nil
	}
	l.merged[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return out, fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	var raw RawConfig
	if err := decodeStrict(data, &raw); err != nil {
		return out, fmt.Errorf("%s: %w", canon, err)
	}

	root := rootMapping(&doc)
	chain = append(chain, canon)
	for _, inc := range includeNodes(root) {
		paths, err := expandInclude(canon, inc.Value)
		if err != nil {
			return out, fmt.Errorf("%s:%d:%d: include %q: %w", canon, inc.Line, inc.Column, inc.Value, err)
		}
		for _, p := range paths {
			sub, err := l.load(p, chain)
			if err != nil {
				return out, err
			}
			out.over(sub)
		}
	}

	own := layer{raw: raw, sources: map[string]Source{}, files: []string{canon}}
	recordSources(root, canon, "", own.sources)
	out.over(own)
	return out, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// canonicalPath resolves symlinks when it can and falls back to the absolute
// path otherwise.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// expandInclude turns an include entry into files. A directory contributes its
// *.yaml and *.yml files in lexical order.
func expandInclude(baseFile, include string) ([]string, error) {
	path, err := resolveInclude(baseFile, include)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			if !ent.IsDir() {
				files = append(files, filepath.Join(path, ent.Name()))
			}
		}
	}
	slices.Sort(files)
	return files, nil
}

func resolveInclude(baseFile, include string) (string, error) {
	switch {
	case include == "":
		return "", fmt.Errorf("path is empty")
	case include == "~" || strings.HasPrefix(include, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(include, "~")), nil
	case filepath.IsAbs(include):
		return include, nil
	default:
		return filepath.Join(filepath.Dir(baseFile), include), nil
	}
}

func rootMapping(doc *yaml.Node) *yaml.Node {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	return node
}

func positionOf(file string, n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
}

// recordSources stores the position of every mapping value under its dotted
// key. Sequences are recorded as a whole.
func recordSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if prefix != "" {
			key = prefix + "." + key
		}
		out[key] = positionOf(file, val)
		recordSources(val, file, key, out)
	}
}

// includeNodes returns the scalar entries of the top-level include key, which
// may be a single path or a list.
func includeNodes(root *yaml.Node) []*yaml.Node {
	if root == nil {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			return []*yaml.Node{val}
		case yaml.SequenceNode:
			var out []*yaml.Node
			for _, item := range val.Content {
				if item.Kind == yaml.ScalarNode {
					out = append(out, item)
				}
			}
			return out
		}
		return nil
	}
	return nil
}

// withSource points a validation error at the file position of the offending
// key, when a file set it.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return err
}
