// Package ir builds the Code IR Builder stage's output (§4.4): a
// language-neutral list of IR nodes in a stable emission order, derived
// from a resolved WebServiceDescription, its TypeMap, and its cyclic
// type groups. Package gengo is the only consumer that knows how to
// render these nodes as Go source.
package ir

// TypeRef names another IR node by its mangled identifier. Indirect is
// set when the referrer and the referenced type are members of the same
// cyclic type group — the emitter must use a pointer (or equivalent
// indirection) rather than an embedded value.
type TypeRef struct {
	Name      string
	Indirect  bool
	ItemOf    bool // true if this TypeRef denotes the element type of a Repeated field
}

// Cardinality is how many times a field's value may occur, lowered
// from XSD minOccurs/maxOccurs/nillable per §4.4's table.
type Cardinality int

const (
	Required Cardinality = iota // minOccurs=1, maxOccurs=1, not nillable
	Optional                    // minOccurs=0, maxOccurs=1, or nillable
	Repeated                    // maxOccurs>1 or unbounded
)

// NodeKind tags the concrete type of a Node.
type NodeKind int

const (
	KindStruct NodeKind = iota
	KindEnum
	KindAlias
	KindStringEnum
	KindList
	KindServiceClient
)

// Node is one declaration in the IR. Exactly one of the kind-specific
// fields below is populated, selected by Kind.
type Node struct {
	Kind NodeKind
	Name string

	// Namespace is the QualifiedName namespace this node was mangled
	// from, kept for the emitter's doc comments and for resolving
	// per-namespace package mapping (SUPPLEMENTAL FEATURES).
	Namespace string

	// cyclic group membership, as computed by the resolver; used by the
	// emitter to decide which fields of this node need an indirection.
	SCCIndex int
	Cyclic   bool

	Struct  *StructNode
	Enum    *EnumNode
	Alias   *AliasNode
	SEnum   *StringEnumNode
	List    *ListNode
	Service *ServiceClientNode
}

// StructNode is IR.Struct: a product type with fields, from a
// complexType.
type StructNode struct {
	Fields []Field
	Base   *TypeRef // non-nil for complexType derivation by extension
}

// Field is one field of a StructNode.
type Field struct {
	Name        string
	Type        TypeRef
	Cardinality Cardinality
	Attribute   bool // true if this field came from an xs:attribute, not an element
	XMLName     string
	XMLNS       string
}

// EnumNode is IR.Enum: a sum type, from a choice particle or a
// simple-type union.
type EnumNode struct {
	Variants []Variant
}

// Variant is one case of an EnumNode; Payload is nil for a marker case.
type Variant struct {
	Name    string
	Payload *TypeRef
}

// AliasNode is IR.Alias: a simple-type restriction with no enumeration
// facet — a named synonym for another type.
type AliasNode struct {
	Target TypeRef
}

// StringEnumNode is IR.StringEnum: a simple-type restriction over
// xs:string with an enumeration facet.
type StringEnumNode struct {
	Cases   []string
	Pattern string // non-empty when the restriction also carries a pattern facet
}

// ListNode is IR.List, built from an xs:list simple type. A maxOccurs>1
// field gets no ListNode: it keeps Repeated cardinality and a TypeRef
// with ItemOf set, which the emitter renders as a slice.
type ListNode struct {
	Element TypeRef
}

// ServiceClientNode is IR.ServiceClient: one SOAP binding's operations.
type ServiceClientNode struct {
	Endpoint   string
	Operations []Op
}

// Op is one SOAP operation of a ServiceClientNode.
type Op struct {
	Name       string
	SOAPAction string
	Input      TypeRef
	Output     *TypeRef
	Faults     []TypeRef
	OneWay     bool
}
