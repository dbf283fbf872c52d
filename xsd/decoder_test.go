package xsd

import (
	"strings"
	"testing"
)

const colorSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="urn:test" elementFormDefault="qualified">
  <xs:simpleType name="Color">
    <xs:restriction base="xs:string">
      <xs:enumeration value="red"/>
      <xs:enumeration value="green"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:complexType name="Node">
    <xs:sequence>
      <xs:element name="Value" type="xs:string"/>
      <xs:element name="Child" type="tns:Node" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
  <xs:element name="Root" type="tns:Node"/>
</xs:schema>`

func TestParseSchemaBasics(t *testing.T) {
	s, err := ParseSchema(strings.NewReader(colorSchema))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	if s.TargetNamespace != "urn:test" {
		t.Errorf("TargetNamespace = %q", s.TargetNamespace)
	}
	if len(s.SimpleTypes) != 1 || s.SimpleTypes[0].Name.Local != "Color" {
		t.Fatalf("SimpleTypes = %+v", s.SimpleTypes)
	}
	enum := s.SimpleTypes[0].Restriction.Facets.Enumeration
	if len(enum) != 2 || enum[0] != "red" || enum[1] != "green" {
		t.Errorf("Enumeration = %v", enum)
	}
	if len(s.ComplexTypes) != 1 || s.ComplexTypes[0].Name.Local != "Node" {
		t.Fatalf("ComplexTypes = %+v", s.ComplexTypes)
	}
	seq, ok := s.ComplexTypes[0].Particle.(*Sequence)
	if !ok || len(seq.Children) != 2 {
		t.Fatalf("Particle = %#v", s.ComplexTypes[0].Particle)
	}
	child := seq.Children[1].(*ElementParticle)
	if child.Element.MinOccurs != 0 {
		t.Errorf("Child MinOccurs = %d", child.Element.MinOccurs)
	}
	if len(s.Elements) != 1 || s.Elements[0].Name.Local != "Root" {
		t.Fatalf("Elements = %+v", s.Elements)
	}
}

const anonymousSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:test">
  <xs:element name="Wrapper">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="A" type="xs:int"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestParseSchemaAnonymousInlineType(t *testing.T) {
	s, err := ParseSchema(strings.NewReader(anonymousSchema))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	if len(s.Elements) != 1 {
		t.Fatalf("Elements = %+v", s.Elements)
	}
	el := s.Elements[0]
	if el.Inline == nil {
		t.Fatal("expected inline complex type")
	}
	seq, ok := el.Inline.Particle.(*Sequence)
	if !ok || len(seq.Children) != 1 {
		t.Fatalf("Particle = %#v", el.Inline.Particle)
	}
}

func TestParseSchemaUnbounded(t *testing.T) {
	const doc = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:test">
  <xs:complexType name="List">
    <xs:sequence>
      <xs:element name="Item" type="xs:string" maxOccurs="unbounded"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`
	s, err := ParseSchema(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	seq := s.ComplexTypes[0].Particle.(*Sequence)
	el := seq.Children[0].(*ElementParticle)
	if el.Element.MaxOccurs != Unbounded {
		t.Errorf("MaxOccurs = %d, want Unbounded", el.Element.MaxOccurs)
	}
}

func TestParseSchemaRejectsNonSchemaRoot(t *testing.T) {
	_, err := ParseSchema(strings.NewReader(`<foo/>`))
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*MalformedSchema); !ok {
		t.Errorf("got %T, want *MalformedSchema", err)
	}
}
