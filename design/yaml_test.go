package design

import (
	"strings"
	"testing"

	"github.com/sarchlab/cgrapnr/cgra"
)

const twoModuleYAML = `
modules:
  - name: A
    resource: PE
  - name: B
    resource: PE
nets:
  - src: A
    src_port: pe_out_res
    dst: B
    dst_port: a
    width: 16
`

func TestLoadYAMLTwoModuleIdentity(t *testing.T) {
	d, err := LoadYAML(strings.NewReader(twoModuleYAML))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(d.Modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(d.Modules))
	}
	a, ok := d.ModuleByName("A")
	if !ok || a.Resource != cgra.PE {
		t.Fatalf("module A missing or wrong resource: %+v", a)
	}
	if len(a.Outputs) != 1 || a.Outputs[0].DstPort != "a" {
		t.Fatalf("unexpected net wiring on A: %+v", a.Outputs)
	}
}

func TestLoadYAMLRejectsFusedModuleWithMultipleInputs(t *testing.T) {
	const doc = `
modules:
  - name: A
    resource: PE
  - name: B
    resource: PE
  - name: C
    resource: PE
    fused: true
nets:
  - {src: A, src_port: pe_out_res, dst: C, dst_port: a, width: 16}
  - {src: B, src_port: pe_out_res, dst: C, dst_port: b, width: 16}
`
	_, err := LoadYAML(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected an error for a fused module with two input nets")
	}
}

func TestFusedSourceWalksBackToNonFusedProducer(t *testing.T) {
	a := &Module{Name: "A", Resource: cgra.PE}
	chain := &Module{Name: "chain", Resource: cgra.PE, Fused: true}
	net := &Net{Src: a, SrcPort: "pe_out_res", Dst: chain, DstPort: "a"}
	a.Outputs = append(a.Outputs, net)
	chain.Inputs = append(chain.Inputs, net)

	if got := FusedSource(chain); got != a {
		t.Fatalf("FusedSource(chain) = %v, want %v", got, a)
	}
}
