// Package resolve implements the Type Resolver stage (§4.3): it walks a
// parsed WebServiceDescription, builds a TypeMap from QualifiedName to
// declaration, a dependency graph over those declarations, and computes
// strongly connected components so the Code IR Builder knows which
// types need an indirection to break a reference cycle.
package resolve

import "github.com/soapkit/wsdlc/xsd"

// DeclKind distinguishes the namespace a declaration lives in: XSD
// elements and types are independent namespaces, so the same
// QualifiedName may legally name both (§4.3 step 2).
type DeclKind int

const (
	DeclElement DeclKind = iota
	DeclType
	DeclGroup
	DeclAttributeGroup
)

func (k DeclKind) String() string {
	switch k {
	case DeclElement:
		return "element"
	case DeclType:
		return "type"
	case DeclGroup:
		return "group"
	case DeclAttributeGroup:
		return "attributeGroup"
	default:
		return "unknown"
	}
}

// NodeID identifies one node of the dependency graph: a declaration of
// a given kind and name.
type NodeID struct {
	Kind DeclKind
	Name xsd.QName
}

// Declaration is one TypeMap entry. Exactly one of the Element/Complex/
// Simple/Group/AttrGroup fields is set, unless Primitive is true (an
// XSD built-in, which has none).
type Declaration struct {
	ID        NodeID
	Primitive bool

	Element     *xsd.Element
	ComplexType *xsd.ComplexType
	SimpleType  *xsd.SimpleType
	Group       *xsd.Group
	AttrGroup   *xsd.AttributeGroup

	// DocOrder is this declaration's position across the whole resolve
	// walk, in the tie-break order of §4.3: document order within a
	// schema, importing document before imported.
	DocOrder int
}

// TypeMap maps a declaration's NodeID to its Declaration.
type TypeMap struct {
	decls map[NodeID]*Declaration
	order []NodeID // insertion order, for deterministic iteration
}

func newTypeMap() *TypeMap {
	return &TypeMap{decls: map[NodeID]*Declaration{}}
}

// All returns every Declaration in insertion order (document order
// within a schema, importing document before imported — the same
// order used for substitution-group tie-breaks in §4.3).
func (m *TypeMap) All() []*Declaration {
	out := make([]*Declaration, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.decls[id])
	}
	return out
}

// Lookup returns the declaration for (kind, name), if any.
func (m *TypeMap) Lookup(kind DeclKind, name xsd.QName) (*Declaration, bool) {
	d, ok := m.decls[NodeID{Kind: kind, Name: name}]
	return d, ok
}

// LookupType is a convenience for Lookup(DeclType, name).
func (m *TypeMap) LookupType(name xsd.QName) (*Declaration, bool) {
	return m.Lookup(DeclType, name)
}

// LookupElement is a convenience for Lookup(DeclElement, name).
func (m *TypeMap) LookupElement(name xsd.QName) (*Declaration, bool) {
	return m.Lookup(DeclElement, name)
}

func (m *TypeMap) insert(d *Declaration) (prior *Declaration, duplicate bool) {
	if prior, ok := m.decls[d.ID]; ok {
		return prior, true
	}
	m.decls[d.ID] = d
	m.order = append(m.order, d.ID)
	return nil, false
}

// DependencyGraph is an adjacency list over NodeIDs: edge A->B iff A's
// definition textually references B, per §4.3.
type DependencyGraph struct {
	edges map[NodeID][]NodeID
	nodes []NodeID // insertion order, for deterministic SCC input
}

func newGraph() *DependencyGraph {
	return &DependencyGraph{edges: map[NodeID][]NodeID{}}
}

func (g *DependencyGraph) addNode(n NodeID) {
	if _, ok := g.edges[n]; !ok {
		g.edges[n] = nil
		g.nodes = append(g.nodes, n)
	}
}

func (g *DependencyGraph) addEdge(from, to NodeID) {
	g.addNode(from)
	g.addNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// Edges returns the declarations from directly depends on.
func (g *DependencyGraph) Edges(from NodeID) []NodeID { return g.edges[from] }

// Result is the Type Resolver's output: the Description's TypeMap,
// dependency graph, and the SCC partition used by the IR Builder's
// cycle-indirection policy.
type Result struct {
	TypeMap *TypeMap
	Graph   *DependencyGraph

	// SCCs holds every strongly connected component with more than one
	// member, plus every singleton that self-refers — the "cyclic type
	// groups" of §4.3. Each component's members are sorted by
	// QualifiedName for deterministic emission (§4.4).
	SCCs [][]NodeID

	// sccOf maps a node to the index of its SCC in SCCs, for nodes that
	// belong to a cyclic group. Acyclic nodes are absent.
	sccOf map[NodeID]int
}

// CyclicGroup reports the SCC index n belongs to, and whether it is
// part of a multi-node or self-referencing cyclic group at all.
func (r *Result) CyclicGroup(n NodeID) (sccIndex int, cyclic bool) {
	i, ok := r.sccOf[n]
	return i, ok
}
