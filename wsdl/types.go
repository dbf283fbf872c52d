// Package wsdl parses WSDL 1.1 documents (the WSDL Parser stage, §4.2)
// into a WebServiceDescription: messages, port types, bindings, and
// services, referencing zero or more schemas parsed by package xsd.
package wsdl

import "github.com/soapkit/wsdlc/xsd"

// Style is an operation's message exchange pattern.
type Style int

const (
	RequestResponse Style = iota
	OneWay
)

// BindingStyle is a SOAP binding's overall style.
type BindingStyle int

const (
	Document BindingStyle = iota
	RPC
)

// Use is the wire encoding a SOAP body part uses.
type Use int

const (
	Literal Use = iota
	Encoded
)

// Description is a WebServiceDescription: the parsed form of one WSDL
// document plus every schema and WSDL it transitively imports.
type Description struct {
	TargetNamespace string
	Namespaces      map[string]string

	Schemas   []*xsd.Schema
	Messages  []*Message
	PortTypes []*PortType
	Bindings  []*Binding
	Services  []*Service

	// pendingImports holds this document's wsdl:import elements between
	// parseDefinitions and the Load-time merge pass.
	pendingImports []wsdlImport
}

// Message describes the data exchanged by an operation.
type Message struct {
	Name  xsd.QName
	Parts []*Part
}

// Part names what Type or Element a message part refers to; exactly one
// of Element/Type is set.
type Part struct {
	Name    string
	Element xsd.QName
	Type    xsd.QName
}

// PortType describes a set of operations.
type PortType struct {
	Name       xsd.QName
	Operations []*Operation
}

// Operation describes one operation of a PortType.
type Operation struct {
	Name   string
	Doc    string
	Input  *MessageRef
	Output *MessageRef
	Faults []*MessageRef
	Style  Style
}

// MessageRef names the Message an operation's input/output/fault binds
// to.
type MessageRef struct {
	Name    string
	Message xsd.QName
}

// Binding maps a PortType's operations onto the wire (here, always
// SOAP 1.1 per §4.2).
type Binding struct {
	Name       xsd.QName
	PortType   xsd.QName
	Style      BindingStyle
	Transport  string
	Operations []*BindingOperation
}

// BindingOperation describes how one operation of the bound PortType is
// carried over SOAP.
type BindingOperation struct {
	Name       string
	SOAPAction string
	InputUse   Use
	OutputUse  Use
}

// Service groups Ports exposing a binding at an address.
type Service struct {
	Name  string
	Ports []*Port
}

// Port binds a Binding to a concrete address.
type Port struct {
	Name    string
	Binding xsd.QName
	Address string
}
