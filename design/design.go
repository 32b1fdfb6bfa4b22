// Package design holds the input design graph: modules and the nets that
// connect their ports (spec §3, §6). Fabric and Modules are built once and
// are immutable afterward; this package never mutates a Design after
// LoadYAML returns it.
package design

import "github.com/sarchlab/cgrapnr/cgra"

// Module is one node of the design graph.
type Module struct {
	Name     string
	Resource cgra.Resource
	Fused    bool
	Attrs    map[string]string

	Inputs  []*Net
	Outputs []*Net
}

// Net is a virtual net: one source port driving one destination port,
// independent of bus width. A PhysicalNet narrows a Net to the routing
// layer of the Net's own Width (spec §3).
type Net struct {
	Src     *Module
	SrcPort string
	Dst     *Module
	DstPort string
	Width   int
}

// PhysicalNet is a Net restricted to a single bus-width layer, the unit the
// routing engine actually routes.
type PhysicalNet struct {
	*Net
	BusWidth int
}

// Design is the full module/net graph read from an external source.
type Design struct {
	Modules []*Module
	Nets    []*Net
}

// ModuleByName looks up a module by its unique name.
func (d *Design) ModuleByName(name string) (*Module, bool) {
	for _, m := range d.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// FusedSource walks a fused module's chain of single-input fused producers
// back to the nearest non-fused module, resolving the "contracted input"
// relation exclusivity constraints need (spec §4.D). It assumes the
// invariant that every fused module has at most one input net.
func FusedSource(m *Module) *Module {
	cur := m
	for cur.Fused {
		if len(cur.Inputs) == 0 {
			return cur
		}
		cur = cur.Inputs[0].Src
	}
	return cur
}

// PhysicalNets expands every net into its physical (bus-width-scoped) form.
func (d *Design) PhysicalNets() []PhysicalNet {
	out := make([]PhysicalNet, 0, len(d.Nets))
	for _, n := range d.Nets {
		out = append(out, PhysicalNet{Net: n, BusWidth: n.Width})
	}
	return out
}
