package placement

import (
	"context"
	"testing"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/solver/refsolver"
)

func TestBitsForEnumeratesMinimalDomain(t *testing.T) {
	cases := []struct{ n, want int }{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4},
	}
	for _, c := range cases {
		if got := bitsFor(c.n); got != c.want {
			t.Errorf("bitsFor(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

// TestRegPosInvariantsRejectNonRegSlot exercises a fabric with no reg="1"
// switch-box slots; a Reg Position's invariant predicate must then be
// unsatisfiable regardless of where it is pinned.
func TestRegPosInvariantsRejectNonRegSlot(t *testing.T) {
	f, err := fabric.NewBuilder().WithXML([]byte(grid2x2XML)).Build()
	if err != nil {
		t.Fatalf("build fabric: %v", err)
	}

	s := refsolver.New()
	pos := NewRegPos(s, f, "R", 1)
	s.Assert(pos.Invariants(s))
	s.Assert(pos.Encode(s, cgra.Coordinate{X: 1, Y: 1}))

	_, err = s.Solve(context.Background())
	if err == nil {
		t.Fatal("expected UNSAT when the fabric has no reg slots")
	}
}
