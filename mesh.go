package shardspec

import (
	"fmt"
	"strings"
)

// Device identifies one compute device in the mesh grid.
type Device struct {
	ID       int
	Platform string
}

// MeshConfig describes a physical device grid: the devices in row-major
// order, the axis names, and the grid shape (one size per axis).
type MeshConfig struct {
	Devices   []Device
	AxisNames []string
	Shape     []int
}

// AxisSize pairs a mesh axis name with its size.
type AxisSize struct {
	Name string
	Size int
}

// Mesh is the named device grid partition specs are validated against.
// A Mesh without axes is unconfigured: constraint application is identity.
type Mesh struct {
	axes    []AxisSize
	index   map[string]int
	devices []Device
}

// NewMesh validates cfg and builds an immutable Mesh. A nil cfg, or one
// with no axes, yields an unconfigured mesh.
func NewMesh(cfg *MeshConfig) (*Mesh, error) {
	m := &Mesh{index: map[string]int{}}
	if cfg == nil || (len(cfg.AxisNames) == 0 && len(cfg.Shape) == 0) {
		return m, nil
	}
	root := Root().Field("mesh")
	var iss Issues
	if len(cfg.AxisNames) != len(cfg.Shape) {
		iss = AppendIssues(iss, root.Issue(CodeInvalidMesh,
			fmt.Sprintf("got %d axis names for a %d-dimensional shape", len(cfg.AxisNames), len(cfg.Shape)),
			"axes", len(cfg.AxisNames), "dims", len(cfg.Shape)))
		return nil, iss
	}
	total := 1
	for i, name := range cfg.AxisNames {
		p := root.Field("axes").Index(i)
		size := cfg.Shape[i]
		switch {
		case name == "":
			iss = AppendIssues(iss, p.Issue(CodeInvalidMesh, "axis name must not be empty"))
		case m.Contains(name):
			iss = AppendIssues(iss, p.Issue(CodeInvalidMesh, fmt.Sprintf("axis %q declared twice", name), "axis", name))
		}
		if size <= 0 {
			iss = AppendIssues(iss, p.Issue(CodeInvalidMesh, fmt.Sprintf("axis %q has non-positive size %d", name, size), "axis", name, "size", size))
		}
		m.index[name] = len(m.axes)
		m.axes = append(m.axes, AxisSize{Name: name, Size: size})
		total *= size
	}
	if len(iss) > 0 {
		return nil, iss
	}
	if len(cfg.Devices) == 0 {
		m.devices = make([]Device, total)
		for i := range m.devices {
			m.devices[i] = Device{ID: i}
		}
		return m, nil
	}
	if len(cfg.Devices) != total {
		return nil, AppendIssues(nil, root.Field("devices").Issue(CodeInvalidMesh,
			fmt.Sprintf("cannot reshape %d devices into %v", len(cfg.Devices), cfg.Shape),
			"devices", len(cfg.Devices), "want", total))
	}
	m.devices = append([]Device(nil), cfg.Devices...)
	return m, nil
}

// Configured reports whether the mesh has at least one axis.
func (m *Mesh) Configured() bool { return m != nil && len(m.axes) > 0 }

// AxisNames returns the axis names in mesh order.
func (m *Mesh) AxisNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.axes))
	for i, a := range m.axes {
		out[i] = a.Name
	}
	return out
}

// Contains reports whether name is a mesh axis.
func (m *Mesh) Contains(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[name]
	return ok
}

// SizeOf returns the size of the named axis, or 0 when it is not a mesh axis.
func (m *Mesh) SizeOf(name string) int {
	if m == nil {
		return 0
	}
	i, ok := m.index[name]
	if !ok {
		return 0
	}
	return m.axes[i].Size
}

// Shape returns the ordered (name, size) pairs.
func (m *Mesh) Shape() []AxisSize {
	if m == nil {
		return nil
	}
	return append([]AxisSize(nil), m.axes...)
}

// Devices returns the devices in row-major grid order.
func (m *Mesh) Devices() []Device {
	if m == nil {
		return nil
	}
	return append([]Device(nil), m.devices...)
}

// DeviceCount is the number of devices in the grid (0 when unconfigured).
func (m *Mesh) DeviceCount() int {
	if m == nil {
		return 0
	}
	return len(m.devices)
}

func (m *Mesh) String() string {
	if !m.Configured() {
		return "Mesh()"
	}
	parts := make([]string, len(m.axes))
	for i, a := range m.axes {
		parts[i] = fmt.Sprintf("%s=%d", a.Name, a.Size)
	}
	return "Mesh(" + strings.Join(parts, ", ") + ")"
}
