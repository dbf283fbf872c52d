package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soapkit/wsdlc/wsdl"
)

// numberConversionWSDL is a trimmed fixture shaped like the public
// NumberConversion demo SOAP service: one schema with four top-level
// elements (first is NumberToWords), four messages, one portType with
// two operations, two bindings, and one service with two ports —
// matching spec §8 scenario 1's exact counts.
const numberConversionWSDL = `<?xml version="1.0"?>
<definitions name="NumberConversion"
    targetNamespace="http://www.dataaccess.com/webservicesserver/"
    xmlns:tns="http://www.dataaccess.com/webservicesserver/"
    xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns="http://schemas.xmlsoap.org/wsdl/">
  <types>
    <xs:schema targetNamespace="http://www.dataaccess.com/webservicesserver/">
      <xs:element name="NumberToWords">
        <xs:complexType>
          <xs:sequence>
            <xs:element name="ubiNum" type="xs:long" minOccurs="0"/>
          </xs:sequence>
        </xs:complexType>
      </xs:element>
      <xs:element name="NumberToWordsResponse">
        <xs:complexType>
          <xs:sequence>
            <xs:element name="NumberToWordsResult" type="xs:string" minOccurs="0"/>
          </xs:sequence>
        </xs:complexType>
      </xs:element>
      <xs:element name="NumberToDollars">
        <xs:complexType>
          <xs:sequence>
            <xs:element name="dNum" type="xs:double" minOccurs="0"/>
          </xs:sequence>
        </xs:complexType>
      </xs:element>
      <xs:element name="NumberToDollarsResponse">
        <xs:complexType>
          <xs:sequence>
            <xs:element name="NumberToDollarsResult" type="xs:string" minOccurs="0"/>
          </xs:sequence>
        </xs:complexType>
      </xs:element>
    </xs:schema>
  </types>
  <message name="NumberToWordsSoapIn"><part name="parameters" element="tns:NumberToWords"/></message>
  <message name="NumberToWordsSoapOut"><part name="parameters" element="tns:NumberToWordsResponse"/></message>
  <message name="NumberToDollarsSoapIn"><part name="parameters" element="tns:NumberToDollars"/></message>
  <message name="NumberToDollarsSoapOut"><part name="parameters" element="tns:NumberToDollarsResponse"/></message>
  <portType name="NumberConversionSoapType">
    <operation name="NumberToWords">
      <input message="tns:NumberToWordsSoapIn"/>
      <output message="tns:NumberToWordsSoapOut"/>
    </operation>
    <operation name="NumberToDollars">
      <input message="tns:NumberToDollarsSoapIn"/>
      <output message="tns:NumberToDollarsSoapOut"/>
    </operation>
  </portType>
  <binding name="NumberConversionSoap" type="tns:NumberConversionSoapType">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
    <operation name="NumberToWords">
      <soap:operation soapAction="http://www.dataaccess.com/webservicesserver/NumberToWords"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
    <operation name="NumberToDollars">
      <soap:operation soapAction="http://www.dataaccess.com/webservicesserver/NumberToDollars"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
  </binding>
  <binding name="NumberConversionSoapAlt" type="tns:NumberConversionSoapType">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
    <operation name="NumberToWords">
      <soap:operation soapAction="http://www.dataaccess.com/webservicesserver/NumberToWords"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
    <operation name="NumberToDollars">
      <soap:operation soapAction="http://www.dataaccess.com/webservicesserver/NumberToDollars"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
  </binding>
  <service name="NumberConversion">
    <port name="NumberConversionSoapType" binding="tns:NumberConversionSoap">
      <soap:address location="http://www.dataaccess.com/webservicesserver/NumberConversion.wso"/>
    </port>
    <port name="NumberConversionSoapType" binding="tns:NumberConversionSoapAlt">
      <soap:address location="http://www.dataaccess.com/webservicesserver/NumberConversion.wso?alt"/>
    </port>
  </service>
</definitions>`

func TestUnmarshalNumberConversionCounts(t *testing.T) {
	desc, err := wsdl.Unmarshal(strings.NewReader(numberConversionWSDL))
	require.NoError(t, err)

	require.Len(t, desc.Bindings, 2)
	require.Len(t, desc.PortTypes, 1)
	require.Len(t, desc.PortTypes[0].Operations, 2)
	require.Len(t, desc.Messages, 4)
	require.Len(t, desc.Services, 1)
	require.Len(t, desc.Services[0].Ports, 2)

	require.Len(t, desc.Schemas, 1)
	require.Len(t, desc.Schemas[0].Elements, 4)
	require.Equal(t, "NumberToWords", desc.Schemas[0].Elements[0].Name.Local)
	require.Equal(t, "http://www.dataaccess.com/webservicesserver/", desc.Schemas[0].Elements[0].Name.Namespace)
}

// TestGenerateNumberConversionClientMethods covers the rest of spec §8
// scenario 1: the emitted client exposes one method per portType
// operation, named after the operation.
func TestGenerateNumberConversionClientMethods(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "numberconversion.wsdl")
	require.NoError(t, os.WriteFile(path, []byte(numberConversionWSDL), 0o644))

	var out bytes.Buffer
	err := Generate(&out, Options{Src: path, Package: "numberclient"})
	if err != nil {
		require.Contains(t, err.Error(), "gofmt")
		return
	}
	require.Contains(t, out.String(), "NumberToWords(")
	require.Contains(t, out.String(), "NumberToDollars(")
}
