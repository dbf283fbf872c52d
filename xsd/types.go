// Package xsd parses XML Schema (XSD) documents into a normalized object
// model: the Schema Parser stage of the pipeline.
//
// http://www.w3.org/TR/xmlschema-1/
package xsd

// Namespace is the canonical XML Schema namespace URI.
const Namespace = "http://www.w3.org/2001/XMLSchema"

// Unbounded is the sentinel maxOccurs value meaning "no upper bound".
const Unbounded = -1

// QName is a qualified name: a namespace URI paired with a local name.
// Equality is structural; Namespace may be empty for unqualified names.
type QName struct {
	Namespace string
	Local     string
}

// String renders the QName as "{namespace}local", or just "local" when
// the namespace is empty.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return "{" + q.Namespace + "}" + q.Local
}

// IsZero reports whether q is the zero QName.
func (q QName) IsZero() bool {
	return q.Namespace == "" && q.Local == ""
}

// NodeKind tags the kind of a top-level Schema node, per the DATA MODEL's
// "element | simpleType | complexType | attribute | group | attributeGroup
// | import" tagging.
type NodeKind int

const (
	KindElement NodeKind = iota
	KindSimpleType
	KindComplexType
	KindAttribute
	KindGroup
	KindAttributeGroup
	KindImport
)

// Schema is the decoded form of one xs:schema element: an ordered
// sequence of top-level nodes, plus the schema-wide defaults that affect
// how local elements are qualified.
type Schema struct {
	TargetNamespace    string
	ElementFormDefault string // "qualified" or "unqualified"
	Namespaces         map[string]string // xmlns prefix -> URI, for resolving qn strings

	Elements        []*Element
	SimpleTypes     []*SimpleType
	ComplexTypes    []*ComplexType
	Attributes      []*Attribute
	Groups          []*Group
	AttributeGroups []*AttributeGroup
	Imports         []*Import
	Includes        []*Import
}

// Import points to another schema document, reached either via
// xs:import (cross-namespace) or xs:include (same namespace).
type Import struct {
	Namespace string
	Location  string
}

// Element is an XSD element declaration, top-level or local to a particle.
type Element struct {
	Name QName
	Doc  string

	// Exactly one of TypeRef or Inline is set, unless this is a
	// reference-only declaration (Ref set, both of the above zero).
	TypeRef QName
	Inline  *ComplexType
	Ref     QName

	Nillable bool
	MinOccurs int
	MaxOccurs int // Unbounded sentinel for "unbounded"

	Abstract          bool
	SubstitutionGroup QName

	// Substitutes is filled in by the resolver: the concrete elements
	// that may appear in place of this one, when Abstract is true.
	Substitutes []*Element
}

// SimpleType is a type derived by restriction, list, or union.
type SimpleType struct {
	Name QName

	Restriction *Restriction
	List        *List
	Union       *Union
}

// Restriction narrows a base type, optionally via an enumeration of
// allowed values or other facets.
type Restriction struct {
	Base   QName
	Facets Facets

	// Attributes holds the attributes declared inside a simpleContent
	// restriction.
	Attributes []*Attribute
}

// Facets is an open map of XSD facet name to its declared values.
// Unknown facets are kept (as a parse warning, not an error) so callers
// that care can still inspect them.
type Facets struct {
	Enumeration  []string
	Pattern      string
	Length       *int
	MinLength    *int
	MaxLength    *int
	MinInclusive string
	MaxInclusive string
	MinExclusive string
	MaxExclusive string
	TotalDigits  *int
	Other        map[string]string
}

// List describes an xs:list simple type: whitespace-separated items of
// ItemType.
type List struct {
	ItemType QName
}

// Union describes an xs:union simple type: a value of any MemberTypes.
type Union struct {
	MemberTypes []QName
}

// ComplexType describes a type with element/attribute content, such as a
// struct.
type ComplexType struct {
	Name QName // zero Name means anonymous; see synthName
	Doc  string

	Abstract bool
	Base     QName // extension/restriction base, zero if none
	Derivation Derivation // Extension, Restriction, or DerivationNone

	Content ContentKind
	// SimpleContentType is set when Content == ContentSimple: the base
	// type text content is restricted/extended to.
	SimpleContentType QName

	Particle   Particle // the content model, nil for ContentEmpty/ContentSimple
	Attributes []*Attribute
}

// Derivation is how a complex type derives from its Base.
type Derivation int

const (
	DerivationNone Derivation = iota
	DerivExtension
	DerivRestriction
)

// ContentKind tags what kind of content a ComplexType carries.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentSimple
	ContentComplex
)

// AttributeUse is the "use" of a complex type's attribute declaration.
type AttributeUse int

const (
	UseOptional AttributeUse = iota
	UseRequired
	UseProhibited
)

// Attribute describes an attribute of a given type.
type Attribute struct {
	Name QName
	Ref  QName
	Type QName
	Use  AttributeUse
}

// Group is a named, reusable particle (xs:group).
type Group struct {
	Name    QName
	Particle Particle
}

// AttributeGroup is a named, reusable set of attribute declarations.
type AttributeGroup struct {
	Name       QName
	Attributes []*Attribute
}

// Particle is the recursive content-model tree of a complex type:
// sequence([Particle]) | choice([Particle]) | all([Particle]) |
// group(QName) | element(Element) | any. Each carries (min, max) in
// Occurs().
type Particle interface {
	Occurs() (min, max int)
	isParticle()
}

type occurs struct {
	Min, Max int
}

func (o occurs) Occurs() (int, int) { return o.Min, o.Max }

// Sequence is an ordered particle group: all children must appear, in
// order.
type Sequence struct {
	occurs
	Children []Particle
}

func (*Sequence) isParticle() {}

// Choice is a particle group where exactly one child may appear.
type Choice struct {
	occurs
	Children []Particle
}

func (*Choice) isParticle() {}

// All is a particle group whose children may appear in any order, each
// at most once.
type All struct {
	occurs
	Children []Particle
}

func (*All) isParticle() {}

// GroupRef references a named Group by QName.
type GroupRef struct {
	occurs
	Ref QName
}

func (*GroupRef) isParticle() {}

// ElementParticle wraps an Element as a Particle.
type ElementParticle struct {
	occurs
	Element *Element
}

func (*ElementParticle) isParticle() {}

// Any is an xs:any wildcard particle.
type Any struct {
	occurs
}

func (*Any) isParticle() {}

// NewOccurs builds an occurs value from XSD's minOccurs/maxOccurs
// attribute strings, applying the XSD defaults of 1 and 1.
func NewOccurs(minAttr, maxAttr string) (min, max int) {
	min = 1
	max = 1
	if minAttr != "" {
		min = parseNonNegInt(minAttr, 1)
	}
	if maxAttr != "" {
		if maxAttr == "unbounded" {
			max = Unbounded
		} else {
			max = parseNonNegInt(maxAttr, 1)
		}
	}
	return min, max
}

func parseNonNegInt(s string, fallback int) int {
	n := 0
	any := false
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
		any = true
	}
	if !any {
		return fallback
	}
	return n
}

// xmlQName resolves a possibly-prefixed XML Schema name ("tns:Foo") into
// a QName, using the schema's recorded namespace prefixes. An
// unprefixed name resolves against the schema's own target namespace
// only when qualify is true (element/attribute form default), otherwise
// it is left unqualified.
func (s *Schema) xmlQName(raw string, qualify bool) QName {
	if raw == "" {
		return QName{}
	}
	prefix, local := splitPrefix(raw)
	if prefix == "" {
		if qualify {
			return QName{Namespace: s.TargetNamespace, Local: local}
		}
		return QName{Local: local}
	}
	ns := s.Namespaces[prefix]
	return QName{Namespace: ns, Local: local}
}

func splitPrefix(raw string) (prefix, local string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i], raw[i+1:]
		}
	}
	return "", raw
}

// Builtin reports whether q names one of the XSD built-in simple types
// and, if so, returns a canonical QName in the XSD namespace.
func Builtin(local string) (QName, bool) {
	if _, ok := builtinTypes[local]; ok {
		return QName{Namespace: Namespace, Local: local}, true
	}
	return QName{}, false
}

// BuiltinNames returns the local names of every XSD built-in simple
// type, for callers that need to seed a type map with all of them
// (order is unspecified).
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinTypes))
	for n := range builtinTypes {
		names = append(names, n)
	}
	return names
}

var builtinTypes = map[string]bool{
	"string": true, "boolean": true, "decimal": true, "float": true,
	"double": true, "duration": true, "dateTime": true, "time": true,
	"date": true, "gYearMonth": true, "gYear": true, "gMonthDay": true,
	"gDay": true, "gMonth": true, "hexBinary": true, "base64Binary": true,
	"anyURI": true, "QName": true, "NOTATION": true, "normalizedString": true,
	"token": true, "language": true, "NMTOKEN": true, "NMTOKENS": true,
	"Name": true, "NCName": true, "ID": true, "IDREF": true, "IDREFS": true,
	"ENTITY": true, "ENTITIES": true, "integer": true, "nonPositiveInteger": true,
	"negativeInteger": true, "long": true, "int": true, "short": true,
	"byte": true, "nonNegativeInteger": true, "unsignedLong": true,
	"unsignedInt": true, "unsignedShort": true, "unsignedByte": true,
	"positiveInteger": true, "anyType": true, "anySimpleType": true,
}
