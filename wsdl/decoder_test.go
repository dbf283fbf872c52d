package wsdl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const golden1 = `<?xml version="1.0"?>
<definitions name="Weather"
    targetNamespace="urn:weather"
    xmlns:tns="urn:weather"
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <types>
    <xs:schema targetNamespace="urn:weather">
      <xs:element name="GetWeatherRequest" type="xs:string"/>
      <xs:element name="GetWeatherResponse" type="xs:string"/>
    </xs:schema>
  </types>
  <message name="GetWeatherRequest">
    <part name="body" element="tns:GetWeatherRequest"/>
  </message>
  <message name="GetWeatherResponse">
    <part name="body" element="tns:GetWeatherResponse"/>
  </message>
  <portType name="WeatherPort">
    <operation name="GetWeather">
      <input message="tns:GetWeatherRequest"/>
      <output message="tns:GetWeatherResponse"/>
    </operation>
  </portType>
  <binding name="WeatherBinding" type="tns:WeatherPort">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
    <operation name="GetWeather">
      <soap:operation soapAction="urn:weather#GetWeather"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
  </binding>
  <service name="WeatherService">
    <port name="WeatherPort" binding="tns:WeatherBinding">
      <soap:address location="http://weather.example.com/soap"/>
    </port>
  </service>
</definitions>`

const goldenNonSOAP = `<?xml version="1.0"?>
<definitions name="Thing"
    targetNamespace="urn:thing"
    xmlns:tns="urn:thing"
    xmlns:http="http://schemas.xmlsoap.org/wsdl/http/"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <message name="M"><part name="body" type="xs:string"/></message>
  <portType name="P">
    <operation name="Op"><input message="tns:M"/></operation>
  </portType>
  <binding name="B" type="tns:P">
    <http:binding verb="GET"/>
    <operation name="Op"><http:operation location="/op"/></operation>
  </binding>
</definitions>`

func TestUnmarshalWeather(t *testing.T) {
	desc, err := Unmarshal(strings.NewReader(golden1))
	require.NoError(t, err)

	require.Equal(t, "urn:weather", desc.TargetNamespace)
	require.Len(t, desc.Schemas, 1)
	require.Len(t, desc.Schemas[0].Elements, 2)

	require.Len(t, desc.Messages, 2)
	require.Len(t, desc.PortTypes, 1)
	require.Len(t, desc.PortTypes[0].Operations, 1)
	op := desc.PortTypes[0].Operations[0]
	require.Equal(t, "GetWeather", op.Name)
	require.Equal(t, RequestResponse, op.Style)
	require.NotNil(t, op.Input)
	require.NotNil(t, op.Output)

	require.Len(t, desc.Bindings, 1)
	b := desc.Bindings[0]
	require.Equal(t, Document, b.Style)
	require.Len(t, b.Operations, 1)
	require.Equal(t, "urn:weather#GetWeather", b.Operations[0].SOAPAction)
	require.Equal(t, Literal, b.Operations[0].InputUse)
	require.Equal(t, Literal, b.Operations[0].OutputUse)

	require.Len(t, desc.Services, 1)
	require.Len(t, desc.Services[0].Ports, 1)
	require.Equal(t, "http://weather.example.com/soap", desc.Services[0].Ports[0].Address)
}

func TestUnmarshalNonSOAPBindingIsSkippedNotFatal(t *testing.T) {
	desc, err := Unmarshal(strings.NewReader(goldenNonSOAP))
	require.NoError(t, err)
	// the http binding itself fails to parse as SOAP: parseBinding returns
	// UnsupportedBinding and parseDefinitions skips that binding instead
	// of failing the document, so confirm the Messages/PortTypes tables
	// are still fully populated.
	require.Len(t, desc.Messages, 1)
	require.Len(t, desc.PortTypes, 1)
}

func TestUnmarshalRejectsNonDefinitionsRoot(t *testing.T) {
	_, err := Unmarshal(strings.NewReader(`<foo/>`))
	require.Error(t, err)
}
