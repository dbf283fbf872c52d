package ir

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/soapkit/wsdlc/resolve"
	"github.com/soapkit/wsdlc/wsdl"
	"github.com/soapkit/wsdlc/xsd"
)

// Options configures the builder's name mangling.
type Options struct {
	// NamespacePackage maps a namespace URI to a mangled identifier
	// prefix, populated from the CLI's repeatable --namespace uri=prefix
	// flag. A QualifiedName whose namespace differs from the primary
	// WSDL target namespace and has an entry here is prefixed with it,
	// so multi-schema WSDLs produce non-colliding identifiers.
	NamespacePackage map[string]string
	// PrimaryNamespace is desc.TargetNamespace; names in it are never
	// prefixed regardless of NamespacePackage.
	PrimaryNamespace string
}

type builder struct {
	res   *resolve.Result
	opts  Options
	ident map[string]string // assigned identifier -> owner source key
	nodes map[string]*Node  // owner source key -> built Node
	order []string          // source keys, in build order
}

// Build implements the Code IR Builder stage of §4.4: it lowers every
// declaration in res.TypeMap plus every usable SOAP binding in desc
// into IR nodes, in the topological emission order required by §4.4
// (SCCs as contiguous blocks, members sorted by QualifiedName).
func Build(desc *wsdl.Description, res *resolve.Result, opts Options) ([]*Node, error) {
	b := &builder{res: res, opts: opts, ident: map[string]string{}, nodes: map[string]*Node{}}

	for _, decl := range res.TypeMap.All() {
		if decl.Primitive {
			continue
		}
		switch decl.ID.Kind {
		case resolve.DeclType:
			if decl.ComplexType != nil {
				b.buildComplexType(decl.ID, decl.ComplexType)
			} else if decl.SimpleType != nil {
				b.buildSimpleType(decl.ID, decl.SimpleType)
			}
		}
		// DeclElement/DeclGroup/DeclAttributeGroup declarations are not
		// emitted as their own top-level IR node: elements surface as
		// struct fields at their point of reference, and groups/attribute
		// groups are inlined where referenced (§4.4 does not name a
		// standalone IR kind for either).
	}

	clients, err := b.buildServiceClients(desc)
	if err != nil {
		return nil, err
	}

	return b.emissionOrder(clients), nil
}

func sourceKey(kind resolve.DeclKind, qn xsd.QName) string {
	return fmt.Sprintf("%d|%s|%s", kind, qn.Namespace, qn.Local)
}

func (b *builder) assign(qn xsd.QName, key string) string {
	if name, ok := b.ident[key+"\x00name"]; ok {
		return name
	}
	base := mangleIdent(qn.Local)
	if isGoKeyword(base) {
		base = "_" + base
	}
	if prefix, ok := b.opts.NamespacePackage[qn.Namespace]; ok && qn.Namespace != b.opts.PrimaryNamespace && qn.Namespace != "" {
		base = mangleIdent(prefix) + base
	}
	name := base
	for {
		owner, taken := b.ident[name]
		if !taken || owner == key {
			break
		}
		name = base + "_" + shortHash(qn.Namespace)
		if _, stillTaken := b.ident[name]; !stillTaken {
			break
		}
		name = name + "X"
	}
	b.ident[name] = key
	b.ident[key+"\x00name"] = name
	return name
}

func mangleIdent(local string) string {
	var out strings.Builder
	upper := true
	for _, r := range local {
		switch {
		case r == '-' || r == '_' || r == '.' || r == ':' || r == ' ':
			upper = true
		case upper:
			out.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			out.WriteRune(r)
		}
	}
	if out.Len() == 0 {
		return "_"
	}
	return out.String()
}

func shortHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%06x", h.Sum32())[:6]
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"nil": true, "true": true, "false": true, "iota": true, "error": true, "string": true,
}

func isGoKeyword(s string) bool { return goKeywords[strings.ToLower(s)] }

func lowerCardinality(min, max int, nillable bool) Cardinality {
	if max > 1 || max == xsd.Unbounded {
		return Repeated
	}
	if min == 0 || nillable {
		return Optional
	}
	return Required
}

func (b *builder) buildSimpleType(id resolve.NodeID, st *xsd.SimpleType) {
	key := sourceKey(id.Kind, id.Name)
	name := b.assign(id.Name, key)
	n := &Node{Name: name, Namespace: id.Name.Namespace}
	b.applyCyclic(id, n)

	switch {
	case st.Restriction != nil && len(st.Restriction.Facets.Enumeration) > 0:
		n.Kind = KindStringEnum
		n.SEnum = &StringEnumNode{Cases: append([]string{}, st.Restriction.Facets.Enumeration...), Pattern: st.Restriction.Facets.Pattern}
	case st.Restriction != nil:
		n.Kind = KindAlias
		n.Alias = &AliasNode{Target: b.typeRefFor(id, st.Restriction.Base)}
	case st.List != nil:
		n.Kind = KindList
		n.List = &ListNode{Element: b.typeRefFor(id, st.List.ItemType)}
	case st.Union != nil:
		n.Kind = KindEnum
		variants := make([]Variant, 0, len(st.Union.MemberTypes))
		for _, m := range st.Union.MemberTypes {
			ref := b.typeRefFor(id, m)
			variants = append(variants, Variant{Name: mangleIdent(m.Local), Payload: &ref})
		}
		n.Enum = &EnumNode{Variants: variants}
	default:
		n.Kind = KindAlias
		n.Alias = &AliasNode{Target: TypeRef{Name: "string"}}
	}

	b.nodes[key] = n
	b.order = append(b.order, key)
}

func (b *builder) buildComplexType(id resolve.NodeID, ct *xsd.ComplexType) {
	key := sourceKey(id.Kind, id.Name)
	name := b.assign(id.Name, key)
	n := &Node{Name: name, Namespace: id.Name.Namespace}
	b.applyCyclic(id, n)

	switch {
	case ct.Content == xsd.ContentSimple:
		n.Kind = KindStruct
		fields := []Field{{Name: "Value", Type: b.typeRefFor(id, ct.SimpleContentType), Cardinality: Required}}
		fields = append(fields, b.attributeFields(id, ct.Attributes)...)
		n.Struct = &StructNode{Fields: dedupeFieldNames(fields)}
	case isTopLevelChoice(ct.Particle):
		n.Kind = KindEnum
		n.Enum = &EnumNode{Variants: b.choiceVariants(id, ct.Particle.(*xsd.Choice))}
	default:
		n.Kind = KindStruct
		var base *TypeRef
		if ct.Derivation == xsd.DerivExtension && !ct.Base.IsZero() {
			ref := b.typeRefFor(id, ct.Base)
			base = &ref
		}
		fields := b.flatten(id, ct.Particle)
		fields = append(fields, b.attributeFields(id, ct.Attributes)...)
		n.Struct = &StructNode{Fields: dedupeFieldNames(fields), Base: base}
	}

	b.nodes[key] = n
	b.order = append(b.order, key)
}

func isTopLevelChoice(p xsd.Particle) bool {
	_, ok := p.(*xsd.Choice)
	return ok
}

func (b *builder) applyCyclic(id resolve.NodeID, n *Node) {
	if idx, ok := b.res.CyclicGroup(id); ok {
		n.Cyclic = true
		n.SCCIndex = idx
	}
}

// typeRefFor resolves a type reference found while building the
// declaration owning id, setting Indirect when target belongs to the
// same cyclic group as id (a true cycle edge needing indirection, per
// §4.4's emission-order note).
func (b *builder) typeRefFor(owner resolve.NodeID, target xsd.QName) TypeRef {
	if qn, ok := xsd.Builtin(target.Local); ok && qn.Namespace == xsd.Namespace {
		return TypeRef{Name: primitiveGoName(target.Local)}
	}
	key := sourceKey(resolve.DeclType, target)
	name := b.assign(target, key)
	ref := TypeRef{Name: name}
	if ownerIdx, ok := b.res.CyclicGroup(owner); ok {
		if targetIdx, ok2 := b.res.CyclicGroup(resolve.NodeID{Kind: resolve.DeclType, Name: target}); ok2 && ownerIdx == targetIdx {
			ref.Indirect = true
		}
	}
	return ref
}

func primitiveGoName(xsdLocal string) string {
	switch xsdLocal {
	case "string", "anyURI", "NMTOKEN", "NMTOKENS", "Name", "NCName", "ID", "IDREF", "IDREFS", "ENTITY", "ENTITIES", "token", "language", "normalizedString", "QName", "NOTATION":
		return "string"
	case "boolean":
		return "bool"
	case "int", "integer", "short":
		return "int"
	case "long":
		return "int64"
	case "unsignedInt":
		return "uint"
	case "unsignedLong":
		return "uint64"
	case "unsignedShort":
		return "uint16"
	case "byte":
		return "int8"
	case "unsignedByte":
		return "uint8"
	case "nonNegativeInteger", "positiveInteger":
		return "uint64"
	case "nonPositiveInteger", "negativeInteger":
		return "int64"
	case "decimal", "float", "double":
		return "float64"
	case "dateTime", "date", "time", "gYear", "gYearMonth", "gMonth", "gMonthDay", "gDay":
		return "time.Time"
	case "duration":
		return "string"
	case "hexBinary", "base64Binary":
		return "[]byte"
	case "anyType", "anySimpleType":
		return "interface{}"
	default:
		return "string"
	}
}

func (b *builder) attributeFields(owner resolve.NodeID, attrs []*xsd.Attribute) []Field {
	var out []Field
	for _, a := range attrs {
		if a.Use == xsd.UseProhibited {
			continue
		}
		name := a.Name
		if name.IsZero() {
			name = a.Ref
		}
		card := Optional
		if a.Use == xsd.UseRequired {
			card = Required
		}
		out = append(out, Field{
			Name:        mangleIdent(name.Local),
			Type:        b.typeRefFor(owner, a.Type),
			Cardinality: card,
			Attribute:   true,
			XMLName:     name.Local,
			XMLNS:       name.Namespace,
		})
	}
	return out
}

func (b *builder) flatten(owner resolve.NodeID, p xsd.Particle) []Field {
	switch v := p.(type) {
	case nil:
		return nil
	case *xsd.Sequence:
		var out []Field
		for _, c := range v.Children {
			out = append(out, b.flatten(owner, c)...)
		}
		return out
	case *xsd.All:
		var out []Field
		for _, c := range v.Children {
			out = append(out, b.flatten(owner, c)...)
		}
		return out
	case *xsd.Choice:
		return []Field{b.synthChoiceField(owner, v)}
	case *xsd.GroupRef:
		decl, ok := b.res.TypeMap.Lookup(resolve.DeclGroup, v.Ref)
		if !ok || decl.Group == nil {
			return nil
		}
		return b.flatten(owner, decl.Group.Particle)
	case *xsd.ElementParticle:
		return []Field{b.elementField(owner, v)}
	case *xsd.Any:
		return nil
	default:
		return nil
	}
}

func (b *builder) elementField(owner resolve.NodeID, v *xsd.ElementParticle) Field {
	el := v.Element
	card := lowerCardinality(v.Min, v.Max, el.Nillable)

	var ref TypeRef
	switch {
	case el.Abstract && len(el.Substitutes) > 0:
		ref = b.substitutionEnum(owner, el)
	case !el.Ref.IsZero():
		ref = b.refElementType(owner, el.Ref)
	case el.Inline != nil:
		ref = b.synthInlineType(owner, el.Name.Local, el.Inline)
	case !el.TypeRef.IsZero():
		ref = b.typeRefFor(owner, el.TypeRef)
	default:
		ref = TypeRef{Name: "string"}
	}
	if card == Repeated {
		ref.ItemOf = true
	}

	fieldLocal := el.Name.Local
	xmlName, xmlNS := el.Name.Local, el.Name.Namespace
	if !el.Ref.IsZero() {
		fieldLocal = el.Ref.Local
		xmlName, xmlNS = el.Ref.Local, el.Ref.Namespace
	}

	return Field{
		Name:        mangleIdent(fieldLocal),
		Type:        ref,
		Cardinality: card,
		XMLName:     xmlName,
		XMLNS:       xmlNS,
	}
}

// refElementType resolves an element particle's ref="..." to the type
// of the element it names — following its own abstract/inline/typeRef
// shape the same way a direct declaration would.
func (b *builder) refElementType(owner resolve.NodeID, ref xsd.QName) TypeRef {
	decl, ok := b.res.TypeMap.Lookup(resolve.DeclElement, ref)
	if !ok || decl.Element == nil {
		return TypeRef{Name: "string"}
	}
	el := decl.Element
	switch {
	case el.Abstract && len(el.Substitutes) > 0:
		return b.substitutionEnum(owner, el)
	case el.Inline != nil:
		return b.synthInlineType(owner, el.Name.Local, el.Inline)
	case !el.TypeRef.IsZero():
		return b.typeRefFor(owner, el.TypeRef)
	default:
		return TypeRef{Name: "string"}
	}
}

// substitutionEnum builds (or reuses) a tagged-choice Enum node whose
// variants are el's non-abstract substitution-group members, per
// §4.3's "emission generates a tagged choice".
func (b *builder) substitutionEnum(owner resolve.NodeID, el *xsd.Element) TypeRef {
	key := "subst|" + el.Name.Namespace + "|" + el.Name.Local
	if n, ok := b.nodes[key]; ok {
		return TypeRef{Name: n.Name}
	}
	name := mangleIdent(el.Name.Local) + "Choice"
	if owner, taken := b.ident[name]; taken && owner != key {
		name = name + "_" + shortHash(el.Name.Namespace)
	}
	b.ident[name] = key
	n := &Node{Name: name, Namespace: el.Name.Namespace, Kind: KindEnum}
	variants := make([]Variant, 0, len(el.Substitutes))
	for _, sub := range el.Substitutes {
		var payload TypeRef
		switch {
		case sub.Inline != nil:
			payload = b.synthInlineType(owner, sub.Name.Local, sub.Inline)
		case !sub.TypeRef.IsZero():
			payload = b.typeRefFor(owner, sub.TypeRef)
		default:
			payload = TypeRef{Name: "string"}
		}
		variants = append(variants, Variant{Name: mangleIdent(sub.Name.Local), Payload: &payload})
	}
	n.Enum = &EnumNode{Variants: variants}
	b.nodes[key] = n
	b.order = append(b.order, key)
	return TypeRef{Name: name}
}

// synthChoiceField synthesizes a named Enum node for a choice particle
// nested inside a sequence/all, since a Field's Type must name a node.
func (b *builder) synthChoiceField(owner resolve.NodeID, c *xsd.Choice) Field {
	key := fmt.Sprintf("choice|%p", c)
	name := owner.Name.Local + "Choice"
	if _, taken := b.ident[name]; taken {
		name = name + "_" + shortHash(owner.Name.Namespace)
	}
	b.ident[name] = key
	n := &Node{Name: name, Namespace: owner.Name.Namespace, Kind: KindEnum, Enum: &EnumNode{Variants: b.choiceVariants(owner, c)}}
	b.nodes[key] = n
	b.order = append(b.order, key)
	card := lowerCardinality(c.Min, c.Max, false)
	return Field{Name: name, Type: TypeRef{Name: name}, Cardinality: card}
}

func (b *builder) choiceVariants(owner resolve.NodeID, c *xsd.Choice) []Variant {
	var variants []Variant
	for _, child := range c.Children {
		switch v := child.(type) {
		case *xsd.ElementParticle:
			f := b.elementField(owner, v)
			variants = append(variants, Variant{Name: f.Name, Payload: &f.Type})
		case *xsd.Choice:
			variants = append(variants, b.choiceVariants(owner, v)...)
		default:
			// nested sequence/all/group/any inside a choice: not a named
			// single-value case, skipped (document-literal WSDLs
			// overwhelmingly use flat element choices).
		}
	}
	return variants
}

// synthInlineType lifts an anonymous inline complexType into its own
// named node (struct or enum, per its own particle shape), keyed by
// identity so the same *xsd.ComplexType value is only lowered once.
func (b *builder) synthInlineType(owner resolve.NodeID, fieldLocal string, ct *xsd.ComplexType) TypeRef {
	key := fmt.Sprintf("inline|%p", ct)
	if n, ok := b.nodes[key]; ok {
		return TypeRef{Name: n.Name}
	}
	name := owner.Name.Local + mangleIdent(fieldLocal)
	if _, taken := b.ident[name]; taken {
		name = name + "_" + shortHash(owner.Name.Namespace)
	}
	b.ident[name] = key

	id := resolve.NodeID{Kind: resolve.DeclType, Name: xsd.QName{Namespace: owner.Name.Namespace, Local: name}}
	n := &Node{Name: name, Namespace: owner.Name.Namespace}
	switch {
	case ct.Content == xsd.ContentSimple:
		n.Kind = KindStruct
		fields := []Field{{Name: "Value", Type: b.typeRefFor(id, ct.SimpleContentType), Cardinality: Required}}
		fields = append(fields, b.attributeFields(id, ct.Attributes)...)
		n.Struct = &StructNode{Fields: dedupeFieldNames(fields)}
	case isTopLevelChoice(ct.Particle):
		n.Kind = KindEnum
		n.Enum = &EnumNode{Variants: b.choiceVariants(id, ct.Particle.(*xsd.Choice))}
	default:
		n.Kind = KindStruct
		fields := b.flatten(id, ct.Particle)
		fields = append(fields, b.attributeFields(id, ct.Attributes)...)
		n.Struct = &StructNode{Fields: dedupeFieldNames(fields)}
	}
	b.nodes[key] = n
	b.order = append(b.order, key)
	return TypeRef{Name: name}
}

func dedupeFieldNames(fields []Field) []Field {
	seen := map[string]int{}
	for i, f := range fields {
		seen[f.Name]++
		if seen[f.Name] > 1 {
			fields[i].Name = fmt.Sprintf("%s%d", f.Name, seen[f.Name])
		}
	}
	return fields
}

func (b *builder) buildServiceClients(desc *wsdl.Description) ([]*Node, error) {
	var clients []*Node
	for _, binding := range desc.Bindings {
		if binding.Style == wsdl.RPC {
			continue // RPC/encoded style: unsupported per Open Question 2, skipped not fatal.
		}
		portType := findPortType(desc, binding.PortType)
		if portType == nil {
			continue
		}
		var ops []Op
		for _, bop := range binding.Operations {
			if bop.InputUse == wsdl.Encoded || bop.OutputUse == wsdl.Encoded {
				continue
			}
			op := findOperation(portType, bop.Name)
			if op == nil || op.Input == nil {
				continue
			}
			inputMsg := findMessage(desc, op.Input.Message)
			if inputMsg == nil || len(inputMsg.Parts) == 0 {
				continue
			}
			id := resolve.NodeID{Kind: resolve.DeclType, Name: binding.Name}
			irOp := Op{
				Name:       op.Name,
				SOAPAction: bop.SOAPAction,
				Input:      b.partTypeRef(id, inputMsg.Parts[0]),
				OneWay:     op.Style == wsdl.OneWay,
			}
			if op.Output != nil {
				outputMsg := findMessage(desc, op.Output.Message)
				if outputMsg != nil && len(outputMsg.Parts) > 0 {
					ref := b.partTypeRef(id, outputMsg.Parts[0])
					irOp.Output = &ref
				}
			}
			for _, fault := range op.Faults {
				faultMsg := findMessage(desc, fault.Message)
				if faultMsg != nil && len(faultMsg.Parts) > 0 {
					irOp.Faults = append(irOp.Faults, b.partTypeRef(id, faultMsg.Parts[0]))
				}
			}
			ops = append(ops, irOp)
		}
		if len(ops) == 0 {
			continue
		}
		key := sourceKey(resolve.DeclType, binding.Name) + "|client"
		name := b.assign(xsd.QName{Namespace: binding.Name.Namespace, Local: binding.Name.Local + "Client"}, key)
		n := &Node{
			Name:      name,
			Namespace: binding.Name.Namespace,
			Kind:      KindServiceClient,
			Service:   &ServiceClientNode{Endpoint: findEndpoint(desc, binding.Name), Operations: ops},
		}
		clients = append(clients, n)
	}
	return clients, nil
}

func (b *builder) partTypeRef(owner resolve.NodeID, part *wsdl.Part) TypeRef {
	if !part.Element.IsZero() {
		return b.refElementType(owner, part.Element)
	}
	return b.typeRefFor(owner, part.Type)
}

func findPortType(desc *wsdl.Description, name xsd.QName) *wsdl.PortType {
	for _, pt := range desc.PortTypes {
		if pt.Name == name {
			return pt
		}
	}
	return nil
}

func findOperation(pt *wsdl.PortType, name string) *wsdl.Operation {
	for _, op := range pt.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

func findMessage(desc *wsdl.Description, name xsd.QName) *wsdl.Message {
	for _, m := range desc.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func findEndpoint(desc *wsdl.Description, bindingName xsd.QName) string {
	for _, svc := range desc.Services {
		for _, port := range svc.Ports {
			if port.Binding == bindingName {
				return port.Address
			}
		}
	}
	return ""
}

// emissionOrder implements §4.4's emission order: a topological sort of
// the dependency graph with each SCC emitted as one contiguous block
// (members already sorted by QualifiedName by the resolver), followed
// by service clients (which depend on message/type nodes but nothing
// depends on them).
func (b *builder) emissionOrder(clients []*Node) []*Node {
	// record owner keys by assigned name, for dependency-name -> key lookup
	for key, n := range b.nodes {
		b.ident[n.Name+"\x00owner"] = key
	}

	// group each built node's key under its SCC index, in the resolver's
	// QualifiedName-sorted member order, so a cyclic group always emits
	// as the same contiguous block regardless of DFS discovery order.
	group := map[string][]string{} // representative key -> member keys, in sorted order
	repOf := map[string]string{}   // member key -> representative key
	for _, comp := range b.res.SCCs {
		var members []string
		for _, id := range comp {
			k := sourceKey(id.Kind, id.Name)
			if _, ok := b.nodes[k]; ok {
				members = append(members, k)
			}
		}
		if len(members) == 0 {
			continue
		}
		rep := members[0]
		group[rep] = members
		for _, m := range members {
			repOf[m] = rep
		}
	}

	var topo []string
	visited := map[string]bool{}
	var visitFn func(key string)

	visitDeps := func(key string, skipRep string) {
		n, ok := b.nodes[key]
		if !ok {
			return
		}
		for _, dep := range directDeps(n) {
			depKey, ok := b.ident[dep+"\x00owner"]
			if !ok {
				continue
			}
			if r, inGroup := repOf[depKey]; inGroup && r == skipRep {
				continue // dependency within the same cyclic group: no separate visit
			}
			visitFn(depKey)
		}
	}

	var visit func(key string)
	visit = func(key string) {
		if visited[key] {
			return
		}
		rep, inGroup := repOf[key]
		if !inGroup {
			visited[key] = true
			visitDeps(key, "")
			topo = append(topo, key)
			return
		}
		members := group[rep]
		for _, m := range members {
			visited[m] = true
		}
		for _, m := range members {
			visitDeps(m, rep)
		}
		topo = append(topo, members...)
	}
	visitFn = visit

	for _, key := range b.order {
		if _, ok := b.nodes[key]; ok {
			visit(key)
		}
	}

	out := make([]*Node, 0, len(topo)+len(clients))
	for _, key := range topo {
		out = append(out, b.nodes[key])
	}
	out = append(out, clients...)
	return out
}

func directDeps(n *Node) []string {
	var out []string
	switch n.Kind {
	case KindStruct:
		if n.Struct.Base != nil {
			out = append(out, n.Struct.Base.Name)
		}
		for _, f := range n.Struct.Fields {
			out = append(out, f.Type.Name)
		}
	case KindEnum:
		for _, v := range n.Enum.Variants {
			if v.Payload != nil {
				out = append(out, v.Payload.Name)
			}
		}
	case KindAlias:
		out = append(out, n.Alias.Target.Name)
	case KindList:
		out = append(out, n.List.Element.Name)
	}
	return out
}
