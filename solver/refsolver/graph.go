package refsolver

import (
	"fmt"

	"github.com/katalvlaran/lvlath/graph/algorithms"
	"github.com/katalvlaran/lvlath/graph/core"

	"github.com/sarchlab/cgrapnr/solver"
)

type nodeID int
type edgeID int

type graphEdge struct {
	from, to nodeID
}

// graphImpl backs solver.Graph with an lvlath directed graph. Reaches and
// DistanceLeq queries are compiled down to ordinary boolean terms over a
// fresh set of per-call edge-selector variables: the term is true iff the
// subgraph induced by the selector variables bound to 1 connects u to v
// (within k hops, for DistanceLeq), checked with algorithms.BFS.
type graphImpl struct {
	owner *Solver

	names    []string
	nameToID map[string]nodeID
	edges    []graphEdge
	g        *core.Graph
}

func newGraphImpl(owner *Solver) *graphImpl {
	return &graphImpl{
		owner:    owner,
		nameToID: make(map[string]nodeID),
		g:        core.NewGraph(true, false),
	}
}

// AddNode implements solver.Graph.
func (gi *graphImpl) AddNode(name string) solver.Node {
	if id, ok := gi.nameToID[name]; ok {
		return solver.Node(id)
	}
	id := nodeID(len(gi.names))
	gi.names = append(gi.names, name)
	gi.nameToID[name] = id
	gi.g.AddVertex(&core.Vertex{ID: name})
	return solver.Node(id)
}

// AddEdge implements solver.Graph.
func (gi *graphImpl) AddEdge(u, v solver.Node) solver.Edge {
	id := edgeID(len(gi.edges))
	gi.edges = append(gi.edges, graphEdge{from: nodeID(u), to: nodeID(v)})
	gi.g.AddEdge(gi.names[u], gi.names[v], 1)
	return solver.Edge(id)
}

// Reaches implements solver.Graph.
func (gi *graphImpl) Reaches(u, v solver.Node) solver.BoolExpr {
	return gi.owner.newExpr(gi.reachExpr(exprReach, u, v, 0))
}

// DistanceLeq implements solver.Graph.
func (gi *graphImpl) DistanceLeq(u, v solver.Node, k int) solver.BoolExpr {
	return gi.owner.newExpr(gi.reachExpr(exprDistanceLeq, u, v, k))
}

func (gi *graphImpl) reachExpr(kind exprKind, u, v solver.Node, k int) exprNode {
	selectors := make([]solver.Var, len(gi.edges))
	edgeRefs := make([]edgeID, len(gi.edges))
	for i := range gi.edges {
		name := fmt.Sprintf("reach#%d_edge%d", gi.owner.nextQueryID(), i)
		selectors[i] = gi.owner.BVVar(name, 1)
		edgeRefs[i] = edgeID(i)
	}
	return exprNode{
		kind:      kind,
		graph:     gi,
		u:         nodeID(u),
		v:         nodeID(v),
		k:         k,
		selectors: selectors,
		edgeRefs:  edgeRefs,
	}
}

// resolveReach builds the induced subgraph of edges whose selector is
// bound to 1 and reports whether u reaches v in it, together with the
// BFS hop count.
func (gi *graphImpl) resolveReach(e exprNode, assign map[solver.Var]int64) (reached bool, path []string, depth int) {
	sub := core.NewGraph(true, false)
	for _, name := range gi.names {
		sub.AddVertex(&core.Vertex{ID: name})
	}
	for i, ge := range e.edgeRefs {
		if assign[e.selectors[i]] != 1 {
			continue
		}
		edge := gi.edges[ge]
		sub.AddEdge(gi.names[edge.from], gi.names[edge.to], 1)
	}

	startName := gi.names[e.u]
	targetName := gi.names[e.v]
	if startName == targetName {
		return true, []string{startName}, 0
	}

	res, err := algorithms.BFS(sub, startName, nil)
	if err != nil || !res.Visited[targetName] {
		return false, nil, 0
	}

	path = buildPath(res.Parent, startName, targetName)
	return true, path, res.Depth[targetName]
}

func buildPath(parent map[string]string, start, target string) []string {
	var rev []string
	cur := target
	for cur != start {
		rev = append(rev, cur)
		prev, ok := parent[cur]
		if !ok {
			return nil
		}
		cur = prev
	}
	rev = append(rev, start)

	path := make([]string, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// AddGraph implements solver.Solver.
func (s *Solver) AddGraph() solver.Graph {
	gi := newGraphImpl(s)
	s.graphs = append(s.graphs, gi)
	return gi
}
