package xsd

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ParseSchema decodes the xs:schema element read from r into a Schema.
// It implements the Schema Parser contract of §4.1: dispatch on each
// direct child's local name, synthesize names for anonymous inline
// types, and collect (rather than reject) unrecognized facets.
func ParseSchema(r io.Reader) (*Schema, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	tok, err := nextStart(d)
	if err != nil {
		return nil, &XMLParseError{Location: "<root>", Cause: err}
	}
	if tok.Name.Space != Namespace || localName(tok.Name) != "schema" {
		return nil, &MalformedSchema{Path: "<root>", Reason: "expected xs:schema"}
	}
	return parseSchemaElement(d, tok)
}

func localName(n xml.Name) string { return n.Local }

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// ParseSchemaElement parses an already-opened xs:schema start element,
// used both by ParseSchema (top-level document) and by the WSDL parser
// for inline wsdl:types/xs:schema children.
func ParseSchemaElement(d *xml.Decoder, start xml.StartElement) (*Schema, error) {
	return parseSchemaElement(d, start)
}

func parseSchemaElement(d *xml.Decoder, start xml.StartElement) (*Schema, error) {
	s := &Schema{
		ElementFormDefault: "unqualified",
		Namespaces:         map[string]string{},
	}
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "xmlns":
			s.Namespaces[a.Name.Local] = a.Value
		case a.Name.Local == "xmlns":
			s.Namespaces[""] = a.Value
		case a.Name.Local == "targetNamespace":
			s.TargetNamespace = a.Value
		case a.Name.Local == "elementFormDefault":
			s.ElementFormDefault = a.Value
		}
	}
	names := map[string]int{} // anonymous-name collision counter

	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, &XMLParseError{Location: "schema", Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := s.dispatch(d, t, names); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return s, nil
			}
		}
	}
	return s, nil
}

// dispatch handles one direct child of xs:schema, per the dispatch
// table in §4.1: element | complexType | simpleType | attribute | group
// | attributeGroup | import | include | annotation.
func (s *Schema) dispatch(d *xml.Decoder, start xml.StartElement, names map[string]int) error {
	switch start.Name.Local {
	case "element":
		el, err := s.parseElement(d, start, "", names)
		if err != nil {
			return err
		}
		s.Elements = append(s.Elements, el)
	case "complexType":
		ct, err := s.parseComplexType(d, start, "", names)
		if err != nil {
			return err
		}
		s.ComplexTypes = append(s.ComplexTypes, ct)
	case "simpleType":
		st, err := s.parseSimpleType(d, start)
		if err != nil {
			return err
		}
		s.SimpleTypes = append(s.SimpleTypes, st)
	case "attribute":
		s.Attributes = append(s.Attributes, s.parseAttribute(start))
		return skipElement(d, start)
	case "group":
		g, err := s.parseGroup(d, start)
		if err != nil {
			return err
		}
		s.Groups = append(s.Groups, g)
	case "attributeGroup":
		ag, err := s.parseAttributeGroup(d, start)
		if err != nil {
			return err
		}
		s.AttributeGroups = append(s.AttributeGroups, ag)
	case "import":
		s.Imports = append(s.Imports, parseImport(start))
		return skipElement(d, start)
	case "include":
		s.Includes = append(s.Includes, parseImport(start))
		return skipElement(d, start)
	case "annotation":
		return skipElement(d, start)
	default:
		return &UnsupportedConstruct{Path: "schema", Construct: start.Name.Local}
	}
	return nil
}

func attr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parseImport(start xml.StartElement) *Import {
	return &Import{
		Namespace: attr(start, "namespace"),
		Location:  attr(start, "schemaLocation"),
	}
}

// skipElement consumes start and all of its children without
// interpreting them (used for annotation/attribute/import, which carry
// no nested structure we care about, or whose content we already read
// from attributes).
func skipElement(d *xml.Decoder, start xml.StartElement) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// parseElement parses an xs:element declaration, per §4.1: type XOR
// inline complexType/simpleType, or ref if neither.
func (s *Schema) parseElement(d *xml.Decoder, start xml.StartElement, containerPath string, names map[string]int) (*Element, error) {
	el := &Element{}
	qualify := s.ElementFormDefault == "qualified" || containerPath == ""
	el.Name = s.xmlQName(attr(start, "name"), qualify)
	el.Ref = s.xmlQName(attr(start, "ref"), true)
	el.TypeRef = s.xmlQName(attr(start, "type"), true)
	el.Nillable = attr(start, "nillable") == "true"
	el.Abstract = attr(start, "abstract") == "true"
	el.SubstitutionGroup = s.xmlQName(attr(start, "substitutionGroup"), true)
	el.MinOccurs, el.MaxOccurs = NewOccurs(attr(start, "minOccurs"), attr(start, "maxOccurs"))

	if el.Name.Local == "" && containerPath != "" {
		el.Name = QName{Namespace: el.Name.Namespace, Local: synthName(containerPath, "item", names)}
	}

	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "complexType":
				if el.TypeRef.Local != "" {
					return nil, &MalformedSchema{Path: el.Name.Local, Reason: "element has both type and inline complexType"}
				}
				ct, err := s.parseComplexType(d, t, el.Name.Local, names)
				if err != nil {
					return nil, err
				}
				el.Inline = ct
				continue
			case "simpleType":
				st, err := s.parseSimpleType(d, t)
				if err != nil {
					return nil, err
				}
				// an inline simple type becomes an anonymous complex
				// type with simple content, so Element.Inline stays
				// uniform regardless of which kind of inline type was used.
				el.Inline = &ComplexType{
					Name:              QName{},
					Content:           ContentSimple,
					SimpleContentType: st.Restriction.Base,
				}
				continue
			case "annotation":
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return el, nil
}

func synthName(parent, field string, names map[string]int) string {
	base := parent + "_" + field
	n := names[base]
	names[base]++
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}

func (s *Schema) parseAttribute(start xml.StartElement) *Attribute {
	a := &Attribute{
		Name: s.xmlQName(attr(start, "name"), false),
		Ref:  s.xmlQName(attr(start, "ref"), true),
		Type: s.xmlQName(attr(start, "type"), true),
	}
	switch attr(start, "use") {
	case "required":
		a.Use = UseRequired
	case "prohibited":
		a.Use = UseProhibited
	default:
		a.Use = UseOptional
	}
	return a
}

func (s *Schema) parseSimpleType(d *xml.Decoder, start xml.StartElement) (*SimpleType, error) {
	st := &SimpleType{Name: s.xmlQName(attr(start, "name"), true)}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "restriction":
				r, err := s.parseRestriction(d, t)
				if err != nil {
					return nil, err
				}
				st.Restriction = r
				continue
			case "list":
				st.List = &List{ItemType: s.xmlQName(attr(t, "itemType"), true)}
			case "union":
				mt := attr(t, "memberTypes")
				u := &Union{}
				for _, tok := range strings.Fields(mt) {
					u.MemberTypes = append(u.MemberTypes, s.xmlQName(tok, true))
				}
				st.Union = u
			case "annotation":
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return st, nil
}

func (s *Schema) parseRestriction(d *xml.Decoder, start xml.StartElement) (*Restriction, error) {
	r := &Restriction{
		Base:   s.xmlQName(attr(start, "base"), true),
		Facets: Facets{Other: map[string]string{}},
	}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v := attr(t, "value")
			switch t.Name.Local {
			case "enumeration":
				r.Facets.Enumeration = append(r.Facets.Enumeration, v)
			case "pattern":
				r.Facets.Pattern = v
			case "minInclusive":
				r.Facets.MinInclusive = v
			case "maxInclusive":
				r.Facets.MaxInclusive = v
			case "minExclusive":
				r.Facets.MinExclusive = v
			case "maxExclusive":
				r.Facets.MaxExclusive = v
			case "length":
				n := parseNonNegInt(v, 0)
				r.Facets.Length = &n
			case "minLength":
				n := parseNonNegInt(v, 0)
				r.Facets.MinLength = &n
			case "maxLength":
				n := parseNonNegInt(v, 0)
				r.Facets.MaxLength = &n
			case "totalDigits":
				n := parseNonNegInt(v, 0)
				r.Facets.TotalDigits = &n
			case "attribute":
				r.Attributes = append(r.Attributes, s.parseAttribute(t))
			default:
				r.Facets.Other[t.Name.Local] = v
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return r, nil
}

func (r *Restriction) attrs() []*Attribute { return r.Attributes }

func (s *Schema) parseComplexType(d *xml.Decoder, start xml.StartElement, containerPath string, names map[string]int) (*ComplexType, error) {
	ct := &ComplexType{
		Name:     s.xmlQName(attr(start, "name"), true),
		Abstract: attr(start, "abstract") == "true",
	}
	if ct.Name.Local == "" {
		ct.Name = QName{Namespace: s.TargetNamespace, Local: synthName(containerPath, "type", names)}
	}
	if containerPath == "" {
		// a top-level complexType is the container of its own local
		// elements, so they follow elementFormDefault.
		containerPath = ct.Name.Local
	}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "annotation":
				ct.Doc = s.parseDocumentation(d, t)
				continue
			case "simpleContent":
				if err := s.parseSimpleContent(d, t, ct); err != nil {
					return nil, err
				}
				continue
			case "complexContent":
				if err := s.parseComplexContent(d, t, ct, containerPath, names); err != nil {
					return nil, err
				}
				continue
			case "sequence":
				p, err := s.parseParticleGroup(d, t, containerPath, names)
				if err != nil {
					return nil, err
				}
				ct.Content = ContentComplex
				ct.Particle = p
				continue
			case "choice":
				p, err := s.parseParticleGroup(d, t, containerPath, names)
				if err != nil {
					return nil, err
				}
				ct.Content = ContentComplex
				ct.Particle = p
				continue
			case "all":
				p, err := s.parseParticleGroup(d, t, containerPath, names)
				if err != nil {
					return nil, err
				}
				ct.Content = ContentComplex
				ct.Particle = p
				continue
			case "group":
				min, max := NewOccurs(attr(t, "minOccurs"), attr(t, "maxOccurs"))
				ct.Content = ContentComplex
				ct.Particle = &GroupRef{occurs: occurs{min, max}, Ref: s.xmlQName(attr(t, "ref"), true)}
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			case "attribute":
				ct.Attributes = append(ct.Attributes, s.parseAttribute(t))
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			case "attributeGroup":
				ref := s.xmlQName(attr(t, "ref"), true)
				ct.Attributes = append(ct.Attributes, &Attribute{Ref: ref})
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return ct, nil
}

func (s *Schema) parseDocumentation(d *xml.Decoder, start xml.StartElement) string {
	var doc strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return doc.String()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.CharData:
			if depth == 2 {
				doc.Write(t)
			}
		case xml.EndElement:
			depth--
		}
	}
	return doc.String()
}

func (s *Schema) parseSimpleContent(d *xml.Decoder, start xml.StartElement, ct *ComplexType) error {
	ct.Content = ContentSimple
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "extension":
				ct.Derivation = DerivExtension
				ct.Base = s.xmlQName(attr(t, "base"), true)
				ct.SimpleContentType = ct.Base
				if err := s.parseExtensionAttrs(d, t, ct); err != nil {
					return err
				}
				continue
			case "restriction":
				ct.Derivation = DerivRestriction
				r, err := s.parseRestriction(d, t)
				if err != nil {
					return err
				}
				ct.Base = r.Base
				ct.SimpleContentType = r.Base
				ct.Attributes = append(ct.Attributes, r.attrs()...)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func (s *Schema) parseExtensionAttrs(d *xml.Decoder, start xml.StartElement, ct *ComplexType) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "attribute" {
				ct.Attributes = append(ct.Attributes, s.parseAttribute(t))
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func (s *Schema) parseComplexContent(d *xml.Decoder, start xml.StartElement, ct *ComplexType, containerPath string, names map[string]int) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "extension":
				ct.Derivation = DerivExtension
				ct.Base = s.xmlQName(attr(t, "base"), true)
				if err := s.parseComplexExtBody(d, t, ct, containerPath, names); err != nil {
					return err
				}
				continue
			case "restriction":
				ct.Derivation = DerivRestriction
				ct.Base = s.xmlQName(attr(t, "base"), true)
				if err := s.parseComplexExtBody(d, t, ct, containerPath, names); err != nil {
					return err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	ct.Content = ContentComplex
	return nil
}

func (s *Schema) parseComplexExtBody(d *xml.Decoder, start xml.StartElement, ct *ComplexType, containerPath string, names map[string]int) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sequence", "choice", "all":
				p, err := s.parseParticleGroup(d, t, containerPath, names)
				if err != nil {
					return err
				}
				ct.Particle = p
				continue
			case "attribute":
				ct.Attributes = append(ct.Attributes, s.parseAttribute(t))
			case "attributeGroup":
				ct.Attributes = append(ct.Attributes, &Attribute{Ref: s.xmlQName(attr(t, "ref"), true)})
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// parseParticleGroup parses a sequence/choice/all start element into the
// matching Particle, recursing into nested groups.
func (s *Schema) parseParticleGroup(d *xml.Decoder, start xml.StartElement, containerPath string, names map[string]int) (Particle, error) {
	min, max := NewOccurs(attr(start, "minOccurs"), attr(start, "maxOccurs"))
	var children []Particle
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "element":
				el, err := s.parseElement(d, t, containerPath, names)
				if err != nil {
					return nil, err
				}
				emin, emax := el.MinOccurs, el.MaxOccurs
				children = append(children, &ElementParticle{occurs{emin, emax}, el})
				continue
			case "sequence", "choice", "all":
				p, err := s.parseParticleGroup(d, t, containerPath, names)
				if err != nil {
					return nil, err
				}
				children = append(children, p)
				continue
			case "group":
				gmin, gmax := NewOccurs(attr(t, "minOccurs"), attr(t, "maxOccurs"))
				children = append(children, &GroupRef{occurs{gmin, gmax}, s.xmlQName(attr(t, "ref"), true)})
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			case "any":
				amin, amax := NewOccurs(attr(t, "minOccurs"), attr(t, "maxOccurs"))
				children = append(children, &Any{occurs{amin, amax}})
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			case "annotation":
				if err := skipElement(d, t); err != nil {
					return nil, err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	switch start.Name.Local {
	case "choice":
		return &Choice{occurs{min, max}, children}, nil
	case "all":
		return &All{occurs{min, max}, children}, nil
	default:
		return &Sequence{occurs{min, max}, children}, nil
	}
}

func (s *Schema) parseGroup(d *xml.Decoder, start xml.StartElement) (*Group, error) {
	g := &Group{Name: s.xmlQName(attr(start, "name"), true)}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sequence", "choice", "all":
				p, err := s.parseParticleGroup(d, t, g.Name.Local, map[string]int{})
				if err != nil {
					return nil, err
				}
				g.Particle = p
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return g, nil
}

func (s *Schema) parseAttributeGroup(d *xml.Decoder, start xml.StartElement) (*AttributeGroup, error) {
	ag := &AttributeGroup{Name: s.xmlQName(attr(start, "name"), true)}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "attribute" {
				ag.Attributes = append(ag.Attributes, s.parseAttribute(t))
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return ag, nil
}
