package resolve

import (
	"sort"

	"github.com/soapkit/wsdlc/wsdl"
	"github.com/soapkit/wsdlc/xsd"
)

type refCandidate struct {
	Kind     DeclKind
	Name     xsd.QName
	Referrer NodeID
}

// Resolve implements the Type Resolver stage of §4.3: it seeds the
// TypeMap with XSD built-ins, walks every schema in desc inserting its
// top-level declarations, records a dependency edge for every
// typeRef/elementRef/base/group reference found, resolves substitution
// groups, and computes the strongly connected components the IR
// Builder needs to know which types require an indirection.
func Resolve(desc *wsdl.Description) (*Result, error) {
	tm := newTypeMap()
	seedBuiltins(tm)

	var allElements []*xsd.Element
	docOrder := 0

	for _, s := range desc.Schemas {
		for _, el := range s.Elements {
			d := &Declaration{ID: NodeID{DeclElement, el.Name}, Element: el, DocOrder: docOrder}
			docOrder++
			if _, dup := tm.insert(d); dup {
				return nil, &DuplicateName{Name: el.Name, Kind: DeclElement}
			}
			allElements = append(allElements, el)
		}
		for _, st := range s.SimpleTypes {
			d := &Declaration{ID: NodeID{DeclType, st.Name}, SimpleType: st, DocOrder: docOrder}
			docOrder++
			if _, dup := tm.insert(d); dup {
				return nil, &DuplicateName{Name: st.Name, Kind: DeclType}
			}
		}
		for _, ct := range s.ComplexTypes {
			d := &Declaration{ID: NodeID{DeclType, ct.Name}, ComplexType: ct, DocOrder: docOrder}
			docOrder++
			if _, dup := tm.insert(d); dup {
				return nil, &DuplicateName{Name: ct.Name, Kind: DeclType}
			}
		}
		for _, g := range s.Groups {
			d := &Declaration{ID: NodeID{DeclGroup, g.Name}, Group: g, DocOrder: docOrder}
			docOrder++
			if _, dup := tm.insert(d); dup {
				return nil, &DuplicateName{Name: g.Name, Kind: DeclGroup}
			}
		}
		for _, ag := range s.AttributeGroups {
			d := &Declaration{ID: NodeID{DeclAttributeGroup, ag.Name}, AttrGroup: ag, DocOrder: docOrder}
			docOrder++
			if _, dup := tm.insert(d); dup {
				return nil, &DuplicateName{Name: ag.Name, Kind: DeclAttributeGroup}
			}
		}
	}

	g := newGraph()
	var candidates []refCandidate

	for _, el := range allElements {
		id := NodeID{DeclElement, el.Name}
		if !el.TypeRef.IsZero() {
			g.addEdge(id, NodeID{DeclType, el.TypeRef})
			candidates = append(candidates, refCandidate{DeclType, el.TypeRef, id})
		}
		if el.Inline != nil {
			collectComplexTypeDeps(id, el.Inline, g, &candidates)
		}
	}
	for _, s := range desc.Schemas {
		for _, st := range s.SimpleTypes {
			id := NodeID{DeclType, st.Name}
			collectSimpleTypeDeps(id, st, g, &candidates)
		}
		for _, ct := range s.ComplexTypes {
			id := NodeID{DeclType, ct.Name}
			collectComplexTypeDeps(id, ct, g, &candidates)
		}
		for _, grp := range s.Groups {
			id := NodeID{DeclGroup, grp.Name}
			if grp.Particle != nil {
				walkParticle(id, grp.Particle, g, &candidates)
			}
		}
		for _, ag := range s.AttributeGroups {
			id := NodeID{DeclAttributeGroup, ag.Name}
			collectAttributeDeps(id, ag.Attributes, g, &candidates)
		}
	}

	if err := checkUnresolved(tm, candidates); err != nil {
		return nil, err
	}

	resolveSubstitutionGroups(allElements)

	sccs, sccOf := computeCyclicGroups(g)

	return &Result{TypeMap: tm, Graph: g, SCCs: sccs, sccOf: sccOf}, nil
}

func seedBuiltins(tm *TypeMap) {
	for _, name := range xsd.BuiltinNames() {
		qn, _ := xsd.Builtin(name)
		tm.insert(&Declaration{ID: NodeID{DeclType, qn}, Primitive: true})
	}
}

func collectComplexTypeDeps(from NodeID, ct *xsd.ComplexType, g *DependencyGraph, candidates *[]refCandidate) {
	if ct.Derivation != xsd.DerivationNone && !ct.Base.IsZero() {
		g.addEdge(from, NodeID{DeclType, ct.Base})
		*candidates = append(*candidates, refCandidate{DeclType, ct.Base, from})
	}
	if ct.Content == xsd.ContentSimple && !ct.SimpleContentType.IsZero() {
		g.addEdge(from, NodeID{DeclType, ct.SimpleContentType})
		*candidates = append(*candidates, refCandidate{DeclType, ct.SimpleContentType, from})
	}
	if ct.Particle != nil {
		walkParticle(from, ct.Particle, g, candidates)
	}
	collectAttributeDeps(from, ct.Attributes, g, candidates)
}

func collectAttributeDeps(from NodeID, attrs []*xsd.Attribute, g *DependencyGraph, candidates *[]refCandidate) {
	for _, a := range attrs {
		if !a.Type.IsZero() {
			g.addEdge(from, NodeID{DeclType, a.Type})
			*candidates = append(*candidates, refCandidate{DeclType, a.Type, from})
		}
	}
}

func collectSimpleTypeDeps(from NodeID, st *xsd.SimpleType, g *DependencyGraph, candidates *[]refCandidate) {
	switch {
	case st.Restriction != nil:
		if !st.Restriction.Base.IsZero() {
			g.addEdge(from, NodeID{DeclType, st.Restriction.Base})
			*candidates = append(*candidates, refCandidate{DeclType, st.Restriction.Base, from})
		}
	case st.List != nil:
		g.addEdge(from, NodeID{DeclType, st.List.ItemType})
		*candidates = append(*candidates, refCandidate{DeclType, st.List.ItemType, from})
	case st.Union != nil:
		for _, m := range st.Union.MemberTypes {
			g.addEdge(from, NodeID{DeclType, m})
			*candidates = append(*candidates, refCandidate{DeclType, m, from})
		}
	}
}

func walkParticle(from NodeID, p xsd.Particle, g *DependencyGraph, candidates *[]refCandidate) {
	switch v := p.(type) {
	case *xsd.Sequence:
		for _, c := range v.Children {
			walkParticle(from, c, g, candidates)
		}
	case *xsd.Choice:
		for _, c := range v.Children {
			walkParticle(from, c, g, candidates)
		}
	case *xsd.All:
		for _, c := range v.Children {
			walkParticle(from, c, g, candidates)
		}
	case *xsd.GroupRef:
		g.addEdge(from, NodeID{DeclGroup, v.Ref})
		*candidates = append(*candidates, refCandidate{DeclGroup, v.Ref, from})
	case *xsd.ElementParticle:
		el := v.Element
		if el == nil {
			return
		}
		if !el.Ref.IsZero() {
			g.addEdge(from, NodeID{DeclElement, el.Ref})
			*candidates = append(*candidates, refCandidate{DeclElement, el.Ref, from})
			return
		}
		if !el.TypeRef.IsZero() {
			g.addEdge(from, NodeID{DeclType, el.TypeRef})
			*candidates = append(*candidates, refCandidate{DeclType, el.TypeRef, from})
		}
		if el.Inline != nil {
			collectComplexTypeDeps(from, el.Inline, g, candidates)
		}
	case *xsd.Any:
		// wildcard content: no static reference to record.
	}
}

func checkUnresolved(tm *TypeMap, candidates []refCandidate) error {
	var bad []*UnresolvedReference
	for _, c := range candidates {
		if _, ok := tm.Lookup(c.Kind, c.Name); !ok {
			bad = append(bad, &UnresolvedReference{Name: c.Name, Kind: c.Kind, Referrer: c.Referrer})
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return &UnresolvedReferences{Refs: bad}
}

// resolveSubstitutionGroups fills in Substitutes for every abstract
// element in allElements, per §4.3's tie-break: substitution-group
// children in document order, transitively flattening any member that
// is itself abstract.
func resolveSubstitutionGroups(allElements []*xsd.Element) {
	bySubGroup := map[xsd.QName][]*xsd.Element{}
	for _, el := range allElements {
		if !el.SubstitutionGroup.IsZero() {
			bySubGroup[el.SubstitutionGroup] = append(bySubGroup[el.SubstitutionGroup], el)
		}
	}
	cache := map[xsd.QName][]*xsd.Element{}
	visiting := map[xsd.QName]bool{}
	var substitutesFor func(name xsd.QName) []*xsd.Element
	substitutesFor = func(name xsd.QName) []*xsd.Element {
		if v, ok := cache[name]; ok {
			return v
		}
		if visiting[name] {
			return nil
		}
		visiting[name] = true
		var out []*xsd.Element
		for _, el := range bySubGroup[name] {
			if el.Abstract {
				out = append(out, substitutesFor(el.Name)...)
			} else {
				out = append(out, el)
			}
		}
		visiting[name] = false
		cache[name] = out
		return out
	}
	for _, el := range allElements {
		if el.Abstract {
			el.Substitutes = substitutesFor(el.Name)
		}
	}
}

func computeCyclicGroups(g *DependencyGraph) ([][]NodeID, map[NodeID]int) {
	raw := tarjanSCC(g)

	var cyclic [][]NodeID
	for _, comp := range raw {
		if len(comp) > 1 {
			cyclic = append(cyclic, comp)
			continue
		}
		n := comp[0]
		for _, e := range g.edges[n] {
			if e == n {
				cyclic = append(cyclic, comp)
				break
			}
		}
	}
	for _, comp := range cyclic {
		sort.Slice(comp, func(i, j int) bool { return nodeLess(comp[i], comp[j]) })
	}
	sort.Slice(cyclic, func(i, j int) bool { return nodeLess(cyclic[i][0], cyclic[j][0]) })

	sccOf := map[NodeID]int{}
	for i, comp := range cyclic {
		for _, n := range comp {
			sccOf[n] = i
		}
	}
	return cyclic, sccOf
}

func nodeLess(a, b NodeID) bool {
	if a.Name.Namespace != b.Name.Namespace {
		return a.Name.Namespace < b.Name.Namespace
	}
	if a.Name.Local != b.Name.Local {
		return a.Name.Local < b.Name.Local
	}
	return a.Kind < b.Kind
}

// tarjanSCC computes every strongly connected component of g via
// Tarjan's algorithm.
func tarjanSCC(g *DependencyGraph) [][]NodeID {
	st := &tarjanState{
		index:   map[NodeID]int{},
		low:     map[NodeID]int{},
		onStack: map[NodeID]bool{},
	}
	for _, n := range g.nodes {
		if _, seen := st.index[n]; !seen {
			strongconnect(g, n, st)
		}
	}
	return st.sccs
}

type tarjanState struct {
	index   map[NodeID]int
	low     map[NodeID]int
	onStack map[NodeID]bool
	stack   []NodeID
	counter int
	sccs    [][]NodeID
}

func strongconnect(g *DependencyGraph, v NodeID, st *tarjanState) {
	st.index[v] = st.counter
	st.low[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range g.edges[v] {
		if _, seen := st.index[w]; !seen {
			strongconnect(g, w, st)
			if st.low[w] < st.low[v] {
				st.low[v] = st.low[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.low[v] {
				st.low[v] = st.index[w]
			}
		}
	}

	if st.low[v] == st.index[v] {
		var comp []NodeID
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, comp)
	}
}
