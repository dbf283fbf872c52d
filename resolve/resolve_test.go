package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soapkit/wsdlc/wsdl"
	"github.com/soapkit/wsdlc/xsd"
)

const cyclicWSDL = `<?xml version="1.0"?>
<definitions name="Tree"
    targetNamespace="urn:tree"
    xmlns:tns="urn:tree"
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <types>
    <xs:schema targetNamespace="urn:tree">
      <xs:complexType name="Node">
        <xs:sequence>
          <xs:element name="label" type="xs:string"/>
          <xs:element name="children" type="tns:NodeList" minOccurs="0" maxOccurs="unbounded"/>
        </xs:sequence>
      </xs:complexType>
      <xs:complexType name="NodeList">
        <xs:sequence>
          <xs:element name="item" type="tns:Node" minOccurs="0" maxOccurs="unbounded"/>
        </xs:sequence>
      </xs:complexType>
      <xs:element name="root" type="tns:Node"/>
    </xs:schema>
  </types>
</definitions>`

const unresolvedWSDL = `<?xml version="1.0"?>
<definitions name="Bad"
    targetNamespace="urn:bad"
    xmlns:tns="urn:bad"
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <types>
    <xs:schema targetNamespace="urn:bad">
      <xs:complexType name="Thing">
        <xs:sequence>
          <xs:element name="missing" type="tns:DoesNotExist"/>
        </xs:sequence>
      </xs:complexType>
    </xs:schema>
  </types>
</definitions>`

func TestResolveSeedsBuiltins(t *testing.T) {
	desc, err := wsdl.Unmarshal(strings.NewReader(cyclicWSDL))
	require.NoError(t, err)
	res, err := Resolve(desc)
	require.NoError(t, err)

	stringQN, _ := res.TypeMap.LookupType(xsd.QName{Namespace: "http://www.w3.org/2001/XMLSchema", Local: "string"})
	require.NotNil(t, stringQN)
	require.True(t, stringQN.Primitive)
}

func TestResolveDetectsCycle(t *testing.T) {
	desc, err := wsdl.Unmarshal(strings.NewReader(cyclicWSDL))
	require.NoError(t, err)
	res, err := Resolve(desc)
	require.NoError(t, err)

	require.Len(t, res.SCCs, 1)
	require.Len(t, res.SCCs[0], 2)

	nodeDecl, ok := res.TypeMap.LookupType(xsd.QName{Namespace: "urn:tree", Local: "Node"})
	require.True(t, ok)
	_, cyclic := res.CyclicGroup(nodeDecl.ID)
	require.True(t, cyclic)
}

func TestResolveReportsUnresolvedReference(t *testing.T) {
	desc, err := wsdl.Unmarshal(strings.NewReader(unresolvedWSDL))
	require.NoError(t, err)
	_, err = Resolve(desc)
	require.Error(t, err)
	var batch *UnresolvedReferences
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Refs, 1)
	require.Equal(t, "DoesNotExist", batch.Refs[0].Name.Local)
}

