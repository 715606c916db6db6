package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source records where an effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // for defaults
	File   string
	Line   int
	Column int
}

func (s Source) position() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

type LoadResult struct {
	Config  *Config
	Path    string            // the top-level file, whether or not it exists
	Sources map[string]Source // YAML path -> last file that wrote it
	Files   []string          // every loaded file, in merge order
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "infopanel", "config.yaml"), nil
}

// LoadWithSources loads the config at DefaultConfigPath.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields the
// defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &includeLoader{
		seen:    make(map[string]bool),
		sources: make(map[string]Source),
	}

	var raw RawConfig
	if _, err := os.Stat(path); err == nil {
		if raw, err = l.load(path, nil); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, l.sources)
	}

	return &LoadResult{
		Config:  cfg,
		Path:    path,
		Sources: l.sources,
		Files:   l.files,
	}, nil
}

// includeLoader merges every file after the files it includes, so the
// including file wins. Sources and files accumulate in merge order.
type includeLoader struct {
	seen    map[string]bool
	sources map[string]Source
	files   []string
}

func (l *includeLoader) load(path string, stack []string) (RawConfig, error) {
	canon, err := canonicalPath(path)
	if err != nil {
		return RawConfig{}, err
	}
	if slices.Contains(stack, canon) {
		return RawConfig{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(stack, " -> "), canon)
	}
	// A file reached twice through different includes is merged once.
	if l.seen[canon] {
		return RawConfig{}, nil
	}
	l.seen[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", canon, err)
	}

	root := rootMapping(&doc)
	var merged RawConfig
	for _, ref := range includeRefs(root, canon) {
		paths, err := expandInclude(canon, ref.value)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s: include %q: %w", ref.src.position(), ref.value, err)
		}
		for _, p := range paths {
			inc, err := l.load(p, append(stack, canon))
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(inc)
		}
	}

	recordSources(root, canon, "", l.sources)
	l.files = append(l.files, canon)
	return merged.merge(own), nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// expandInclude resolves an include entry. A directory expands to its
// .yaml and .yml files in name order.
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
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}
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
		return filepath.Join(home, strings.TrimPrefix(include[1:], "/")), nil
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

func fileSource(file string, n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
}

type includeRef struct {
	value string
	src   Source
}

// includeRefs reads the top-level include key, a scalar or a list of them.
func includeRefs(root *yaml.Node, file string) []includeRef {
	if root == nil {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		nodes := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode {
			nodes = val.Content
		}
		var refs []includeRef
		for _, n := range nodes {
			if n.Kind == yaml.ScalarNode {
				refs = append(refs, includeRef{value: n.Value, src: fileSource(file, n)})
			}
		}
		return refs
	}
	return nil
}

// recordSources maps every YAML path under node to the position that set it.
// List entries with an id key are addressed by that id, so
// profiles.<id>.width names the same value in every file.
func recordSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			val := node.Content[i+1]
			path := joinPath(prefix, node.Content[i].Value)
			out[path] = fileSource(file, val)
			recordSources(val, file, path, out)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				continue
			}
			key := mappingID(item)
			if key == "" {
				key = strconv.Itoa(i)
			}
			path := joinPath(prefix, key)
			out[path] = fileSource(file, item)
			recordSources(item, file, path, out)
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func mappingID(node *yaml.Node) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "id" && node.Content[i+1].Kind == yaml.ScalarNode {
			return node.Content[i+1].Value
		}
	}
	return ""
}

// withSource points a validation error at the file position that set the
// offending key.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Path != "" {
		if src, ok := sources[verr.Path]; ok {
			verr.Source = src
		}
	}
	return err
}
