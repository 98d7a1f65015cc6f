// Package layout loads a mesh and its partition catalogue from YAML, JSON or
// TOML documents and builds a validated shardspec.Registry from them.
//
//	mesh:
//	  axes: [{name: z, size: 2}, {name: x, size: 2}]
//	array_partitions:
//	  vertical: [[z, x], null, null]
//	field_partitions:
//	  vertical: {level: [z, x], layer: z}
//
// A document without a mesh section describes an unconfigured mesh. Since
// TOML has no null, "" also marks an unassigned axis.
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	j "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/reoring/shardspec"
	"github.com/reoring/shardspec/internal/dupkeys"
)

// Format names a layout encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Layout is the decoded document. Assignments stay loosely typed until
// Build so every decoder can share shardspec.ParseAssignment.
type Layout struct {
	Mesh            *Mesh                     `yaml:"mesh" json:"mesh" toml:"mesh"`
	ArrayPartitions map[string][]any          `yaml:"array_partitions" json:"array_partitions" toml:"array_partitions"`
	FieldPartitions map[string]map[string]any `yaml:"field_partitions" json:"field_partitions" toml:"field_partitions"`
}

// Mesh is the mesh section.
type Mesh struct {
	Axes []Axis `yaml:"axes" json:"axes" toml:"axes"`
	// Devices is the expected device count; 0 means the product of sizes.
	Devices  int    `yaml:"devices" json:"devices" toml:"devices"`
	Platform string `yaml:"platform" json:"platform" toml:"platform"`
}

// Axis is one named mesh axis.
type Axis struct {
	Name string `yaml:"name" json:"name" toml:"name"`
	Size int    `yaml:"size" json:"size" toml:"size"`
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("layout: cannot infer format of %q (want .yaml, .yml, .json or .toml)", path)
	}
}

// Load reads and decodes a layout file.
func Load(path string) (*Layout, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return Decode(data, f)
}

// Open loads a layout file and builds its registry.
func Open(path string, opts ...shardspec.RegistryOpt) (*shardspec.Registry, error) {
	l, err := Load(path)
	if err != nil {
		return nil, err
	}
	return l.Build(opts...)
}

// Decode parses data in the given format. Unknown fields and duplicate keys
// are rejected.
func Decode(data []byte, f Format) (*Layout, error) {
	var l Layout
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&l); err != nil && !errors.Is(err, io.EOF) {
			return nil, parseIssue(f, err)
		}
	case FormatJSON:
		dups, err := dupkeys.Detect(data, 0)
		if err != nil {
			return nil, parseIssue(f, err)
		}
		if len(dups) > 0 {
			var iss shardspec.Issues
			for _, d := range dups {
				iss = shardspec.AppendIssues(iss, shardspec.At(d.Path).Issue(shardspec.CodeDuplicateKey,
					fmt.Sprintf("key %q duplicated", d.Key), "key", d.Key))
			}
			return nil, iss
		}
		dec := j.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&l); err != nil {
			return nil, parseIssue(f, err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&l); err != nil {
			return nil, parseIssue(f, err)
		}
	default:
		return nil, fmt.Errorf("layout: unknown format %q", f)
	}
	return &l, nil
}

func parseIssue(f Format, err error) shardspec.Issues {
	return shardspec.AppendIssues(nil, shardspec.Issue{
		Path:    "/",
		Code:    shardspec.CodeParseError,
		Message: fmt.Sprintf("%s: %v", f, err),
		Cause:   err,
	})
}

// MeshConfig converts the mesh section; nil when the layout has none.
func (l *Layout) MeshConfig() *shardspec.MeshConfig {
	if l.Mesh == nil || len(l.Mesh.Axes) == 0 {
		return nil
	}
	cfg := &shardspec.MeshConfig{}
	for _, a := range l.Mesh.Axes {
		cfg.AxisNames = append(cfg.AxisNames, a.Name)
		cfg.Shape = append(cfg.Shape, a.Size)
	}
	if l.Mesh.Devices > 0 {
		cfg.Devices = make([]shardspec.Device, l.Mesh.Devices)
		for i := range cfg.Devices {
			cfg.Devices[i] = shardspec.Device{ID: i, Platform: l.Mesh.Platform}
		}
	}
	return cfg
}

// Build validates the layout and returns its registry.
func (l *Layout) Build(opts ...shardspec.RegistryOpt) (*shardspec.Registry, error) {
	mesh, err := shardspec.NewMesh(l.MeshConfig())
	if err != nil {
		return nil, err
	}
	arrays, fields, iss := l.specs()
	if len(iss) > 0 {
		return nil, iss
	}
	return shardspec.NewRegistry(mesh, arrays, fields, opts...)
}

func (l *Layout) specs() (map[string]shardspec.PositionalSpec, map[string]shardspec.LabeledSpec, shardspec.Issues) {
	var iss shardspec.Issues
	arrays := make(map[string]shardspec.PositionalSpec, len(l.ArrayPartitions))
	for name, entries := range l.ArrayPartitions {
		spec := make(shardspec.PositionalSpec, len(entries))
		for i, e := range entries {
			a, err := shardspec.ParseAssignment(e)
			if err != nil {
				iss = shardspec.AppendIssues(iss, invalidAssignment(shardspec.Root().Field("array_partitions").Field(name).Index(i), err))
				continue
			}
			spec[i] = a
		}
		arrays[name] = spec
	}
	fields := make(map[string]shardspec.LabeledSpec, len(l.FieldPartitions))
	for name, dims := range l.FieldPartitions {
		spec := make(shardspec.LabeledSpec, len(dims))
		for d, e := range dims {
			a, err := shardspec.ParseAssignment(e)
			if err != nil {
				iss = shardspec.AppendIssues(iss, invalidAssignment(shardspec.Root().Field("field_partitions").Field(name).Field(d), err))
				continue
			}
			spec[d] = a
		}
		fields[name] = spec
	}
	sortIssues(iss)
	return arrays, fields, iss
}

func invalidAssignment(p shardspec.PathRef, err error) shardspec.Issue {
	it := p.Issue(shardspec.CodeInvalidAssignment, err.Error())
	it.Cause = err
	return it
}

// sortIssues orders issues by path so map iteration order never leaks into
// error output.
func sortIssues(iss shardspec.Issues) {
	sort.SliceStable(iss, func(a, b int) bool { return iss[a].Path < iss[b].Path })
}
