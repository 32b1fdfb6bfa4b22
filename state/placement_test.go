package state

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrapnr/cgra"
	"github.com/sarchlab/cgrapnr/design"
)

var _ = Describe("PlacementState", func() {
	var (
		ps *PlacementState
		a  *design.Module
	)

	BeforeEach(func() {
		ps = NewPlacementState()
		a = &design.Module{Name: "A", Resource: cgra.PE}
	})

	It("indexes a placed module by coordinate", func() {
		ps.Insert(a, PlacedPosition{X: 1, Y: 2})

		Expect(ps.At(cgra.Coordinate{X: 1, Y: 2})).To(ConsistOf(a))
		Expect(ps.Occupied()).To(HaveKey(cgra.Coordinate{X: 1, Y: 2}))
	})

	It("moves the reverse index when a module is re-inserted", func() {
		ps.Insert(a, PlacedPosition{X: 1, Y: 2})
		ps.Insert(a, PlacedPosition{X: 3, Y: 4, IsReg: true, Side: cgra.S, Track: 0})

		Expect(ps.At(cgra.Coordinate{X: 1, Y: 2})).To(BeEmpty())
		Expect(ps.At(cgra.Coordinate{X: 3, Y: 4})).To(ConsistOf(a))

		pos, ok := ps.Lookup(a)
		Expect(ok).To(BeTrue())
		Expect(pos.Side).To(Equal(cgra.S))
	})
})
