package design

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/pnrerr"
)

// yamlDesign mirrors the design-file schema of spec §6: a flat list of
// modules and a flat list of nets referencing them by name.
type yamlDesign struct {
	Modules []yamlModule `yaml:"modules"`
	Nets    []yamlNet    `yaml:"nets"`
}

type yamlModule struct {
	Name     string            `yaml:"name"`
	Resource string            `yaml:"resource"`
	Fused    bool              `yaml:"fused"`
	Attrs    map[string]string `yaml:"attrs"`
}

type yamlNet struct {
	Src     string `yaml:"src"`
	SrcPort string `yaml:"src_port"`
	Dst     string `yaml:"dst"`
	DstPort string `yaml:"dst_port"`
	Width   int    `yaml:"width"`
}

var resourceNames = map[string]cgra.Resource{
	"PE":  cgra.PE,
	"Mem": cgra.Mem,
	"Reg": cgra.Reg,
	"IO":  cgra.IO,
}

// LoadYAML reads a design graph in the schema of spec §6: a list of modules
// (name, resource, fused, attrs) and a list of nets (src, src_port, dst,
// dst_port, width). It is a minimal stand-in for the out-of-scope front end
// that would parse a real mapped-design file.
func LoadYAML(r io.Reader) (*Design, error) {
	var doc yamlDesign
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &pnrerr.DesignParseError{Detail: "decoding design YAML", Err: err}
	}

	d := &Design{}
	byName := make(map[string]*Module, len(doc.Modules))

	for _, ym := range doc.Modules {
		res, ok := resourceNames[ym.Resource]
		if !ok {
			return nil, &pnrerr.DesignParseError{
				Detail: fmt.Sprintf("module %q: unknown resource %q", ym.Name, ym.Resource),
			}
		}
		m := &Module{
			Name:     ym.Name,
			Resource: res,
			Fused:    ym.Fused,
			Attrs:    ym.Attrs,
		}
		if _, dup := byName[m.Name]; dup {
			return nil, &pnrerr.DesignParseError{
				Detail: fmt.Sprintf("duplicate module name %q", m.Name),
			}
		}
		byName[m.Name] = m
		d.Modules = append(d.Modules, m)
	}

	for _, yn := range doc.Nets {
		src, ok := byName[yn.Src]
		if !ok {
			return nil, &pnrerr.DesignParseError{
				Detail: fmt.Sprintf("net references unknown source module %q", yn.Src),
			}
		}
		dst, ok := byName[yn.Dst]
		if !ok {
			return nil, &pnrerr.DesignParseError{
				Detail: fmt.Sprintf("net references unknown destination module %q", yn.Dst),
			}
		}
		n := &Net{
			Src:     src,
			SrcPort: yn.SrcPort,
			Dst:     dst,
			DstPort: yn.DstPort,
			Width:   yn.Width,
		}
		src.Outputs = append(src.Outputs, n)
		dst.Inputs = append(dst.Inputs, n)
		d.Nets = append(d.Nets, n)
	}

	if err := validateFusedInputs(d); err != nil {
		return nil, err
	}

	return d, nil
}

// validateFusedInputs enforces the invariant that a fused module has at
// most one input net (spec §4.D fusion-resolution precondition).
func validateFusedInputs(d *Design) error {
	for _, m := range d.Modules {
		if m.Fused && len(m.Inputs) > 1 {
			return &pnrerr.DesignParseError{
				Detail: fmt.Sprintf("fused module %q has %d input nets, want at most 1", m.Name, len(m.Inputs)),
			}
		}
	}
	return nil
}
