package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soapkit/wsdlc/resolve"
	"github.com/soapkit/wsdlc/wsdl"
)

const buildWSDL = `<?xml version="1.0"?>
<definitions name="Catalog"
    targetNamespace="urn:catalog"
    xmlns:tns="urn:catalog"
    xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <types>
    <xs:schema targetNamespace="urn:catalog">
      <xs:simpleType name="StatusCode">
        <xs:restriction base="xs:string">
          <xs:enumeration value="OK"/>
          <xs:enumeration value="ERROR"/>
        </xs:restriction>
      </xs:simpleType>
      <xs:complexType name="Address">
        <xs:sequence>
          <xs:element name="street" type="xs:string"/>
          <xs:element name="city" type="xs:string"/>
        </xs:sequence>
      </xs:complexType>
      <xs:complexType name="Shape">
        <xs:choice>
          <xs:element name="circleRadius" type="xs:double"/>
          <xs:element name="squareSide" type="xs:double"/>
        </xs:choice>
      </xs:complexType>
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
      <xs:element name="getNodeRequest" type="tns:Address"/>
      <xs:element name="getNodeResponse" type="tns:Node"/>
    </xs:schema>
  </types>
  <message name="GetNodeRequest">
    <part name="parameters" element="tns:getNodeRequest"/>
  </message>
  <message name="GetNodeResponse">
    <part name="parameters" element="tns:getNodeResponse"/>
  </message>
  <portType name="NodePort">
    <operation name="GetNode">
      <input message="tns:GetNodeRequest"/>
      <output message="tns:GetNodeResponse"/>
    </operation>
  </portType>
  <binding name="NodeBinding" type="tns:NodePort">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
    <operation name="GetNode">
      <soap:operation soapAction="urn:catalog/GetNode"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
  </binding>
  <service name="NodeService">
    <port name="NodePort" binding="tns:NodeBinding">
      <soap:address location="http://example.com/node"/>
    </port>
  </service>
</definitions>`

func buildFixture(t *testing.T) ([]*Node, *wsdl.Description, *resolve.Result) {
	t.Helper()
	desc, err := wsdl.Unmarshal(strings.NewReader(buildWSDL))
	require.NoError(t, err)
	res, err := resolve.Resolve(desc)
	require.NoError(t, err)
	nodes, err := Build(desc, res, Options{PrimaryNamespace: "urn:catalog"})
	require.NoError(t, err)
	return nodes, desc, res
}

func findNode(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func TestBuildStructFromSequence(t *testing.T) {
	nodes, _, _ := buildFixture(t)
	addr := findNode(nodes, "Address")
	require.NotNil(t, addr)
	require.Equal(t, KindStruct, addr.Kind)
	require.Len(t, addr.Struct.Fields, 2)
	require.Equal(t, "Street", addr.Struct.Fields[0].Name)
	require.Equal(t, "string", addr.Struct.Fields[0].Type.Name)
}

func TestBuildEnumFromTopLevelChoice(t *testing.T) {
	nodes, _, _ := buildFixture(t)
	shape := findNode(nodes, "Shape")
	require.NotNil(t, shape)
	require.Equal(t, KindEnum, shape.Kind)
	require.Len(t, shape.Enum.Variants, 2)
	require.Equal(t, "CircleRadius", shape.Enum.Variants[0].Name)
}

func TestBuildStringEnum(t *testing.T) {
	nodes, _, _ := buildFixture(t)
	status := findNode(nodes, "StatusCode")
	require.NotNil(t, status)
	require.Equal(t, KindStringEnum, status.Kind)
	require.Equal(t, []string{"OK", "ERROR"}, status.SEnum.Cases)
}

func TestBuildCyclicStructsGetIndirection(t *testing.T) {
	nodes, _, res := buildFixture(t)
	node := findNode(nodes, "Node")
	nodeList := findNode(nodes, "NodeList")
	require.NotNil(t, node)
	require.NotNil(t, nodeList)
	require.True(t, node.Cyclic)
	require.True(t, nodeList.Cyclic)
	require.Equal(t, node.SCCIndex, nodeList.SCCIndex)

	var childrenField *Field
	for i, f := range node.Struct.Fields {
		if f.XMLName == "children" {
			childrenField = &node.Struct.Fields[i]
		}
	}
	require.NotNil(t, childrenField)
	require.True(t, childrenField.Type.Indirect)
	require.True(t, childrenField.Type.ItemOf)
	require.Equal(t, Repeated, childrenField.Cardinality)

	// Node and NodeList must appear as one contiguous block, in the
	// resolver's sorted order.
	nodeIdx, listIdx := indexOf(nodes, node), indexOf(nodes, nodeList)
	require.Equal(t, nodeIdx+1, listIdx)
	require.Len(t, res.SCCs, 1)
}

func indexOf(nodes []*Node, target *Node) int {
	for i, n := range nodes {
		if n == target {
			return i
		}
	}
	return -1
}

func TestBuildServiceClient(t *testing.T) {
	nodes, _, _ := buildFixture(t)
	client := findNode(nodes, "NodeBindingClient")
	require.NotNil(t, client)
	require.Equal(t, KindServiceClient, client.Kind)
	require.Equal(t, "http://example.com/node", client.Service.Endpoint)
	require.Len(t, client.Service.Operations, 1)
	op := client.Service.Operations[0]
	require.Equal(t, "GetNode", op.Name)
	require.Equal(t, "urn:catalog/GetNode", op.SOAPAction)
	require.Equal(t, "Address", op.Input.Name)
	require.NotNil(t, op.Output)
	require.Equal(t, "Node", op.Output.Name)
	require.False(t, op.OneWay)
}

func TestBuildSkipsRPCBinding(t *testing.T) {
	const rpcWSDL = `<?xml version="1.0"?>
<definitions name="Legacy"
    targetNamespace="urn:legacy"
    xmlns:tns="urn:legacy"
    xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <message name="PingRequest"><part name="x" type="xs:string"/></message>
  <message name="PingResponse"><part name="x" type="xs:string"/></message>
  <portType name="PingPort">
    <operation name="Ping">
      <input message="tns:PingRequest"/>
      <output message="tns:PingResponse"/>
    </operation>
  </portType>
  <binding name="PingBinding" type="tns:PingPort">
    <soap:binding style="rpc" transport="http://schemas.xmlsoap.org/soap/http"/>
    <operation name="Ping">
      <soap:operation soapAction="urn:legacy/Ping"/>
      <input><soap:body use="encoded" namespace="urn:legacy" encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"/></input>
      <output><soap:body use="encoded" namespace="urn:legacy" encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"/></output>
    </operation>
  </binding>
  <service name="PingService">
    <port name="PingPort" binding="tns:PingBinding">
      <soap:address location="http://example.com/ping"/>
    </port>
  </service>
</definitions>`
	desc, err := wsdl.Unmarshal(strings.NewReader(rpcWSDL))
	require.NoError(t, err)
	res, err := resolve.Resolve(desc)
	require.NoError(t, err)
	nodes, err := Build(desc, res, Options{PrimaryNamespace: "urn:legacy"})
	require.NoError(t, err)
	require.Nil(t, findNode(nodes, "PingBindingClient"))
}
