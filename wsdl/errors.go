package wsdl

import (
	"fmt"

	"github.com/soapkit/wsdlc/xsd"
)

// MissingRequiredChild reports that a required child element was absent.
type MissingRequiredChild struct {
	Parent string
	Name   string
}

func (e *MissingRequiredChild) Error() string {
	return fmt.Sprintf("%s: missing required child %q", e.Parent, e.Name)
}

// DuplicateName reports two top-level declarations of the same kind
// sharing a QualifiedName.
type DuplicateName struct {
	Name xsd.QName
	Kind string
}

func (e *DuplicateName) Error() string {
	return fmt.Sprintf("duplicate %s %s", e.Kind, e.Name)
}

// UnsupportedBinding reports a binding that isn't SOAP 1.1, per §4.2.
// The binding is skipped, not fatal: the description is still usable if
// at least one port has a SOAP binding.
type UnsupportedBinding struct {
	Name xsd.QName
}

func (e *UnsupportedBinding) Error() string {
	return fmt.Sprintf("unsupported (non-SOAP-1.1) binding %s", e.Name)
}
