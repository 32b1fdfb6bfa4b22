package state

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
)

var _ = Describe("RoutingState", func() {
	var (
		rs       *RoutingState
		netAB    *design.Net
		netCB    *design.Net
		sinkPort fabric.PortHandle
	)

	BeforeEach(func() {
		rs = NewRoutingState()
		a := &design.Module{Name: "A"}
		c := &design.Module{Name: "C"}
		b := &design.Module{Name: "B"}
		netAB = &design.Net{Src: a, Dst: b, DstPort: "a"}
		netCB = &design.Net{Src: c, Dst: b, DstPort: "a"}
		sinkPort = fabric.PortHandle(7)
	})

	It("records a net's routed path", func() {
		err := rs.Record(netAB, RoutedPath{Tracks: []fabric.TrackHandle{0, 1}, BusWidth: 16}, sinkPort)
		Expect(err).NotTo(HaveOccurred())

		path, ok := rs.Path(netAB)
		Expect(ok).To(BeTrue())
		Expect(path.Tracks).To(Equal([]fabric.TrackHandle{0, 1}))
	})

	It("rejects a second net claiming the same sink as illegal routing", func() {
		Expect(rs.Record(netAB, RoutedPath{BusWidth: 16}, sinkPort)).To(Succeed())

		err := rs.Record(netCB, RoutedPath{BusWidth: 16}, sinkPort)
		Expect(err).To(HaveOccurred())
	})
})
