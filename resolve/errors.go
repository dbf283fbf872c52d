package resolve

import (
	"fmt"
	"strings"

	"github.com/soapkit/wsdlc/xsd"
)

// DuplicateName reports two top-level declarations of the same kind
// sharing a QualifiedName, per §4.3 step 2.
type DuplicateName struct {
	Name xsd.QName
	Kind DeclKind
}

func (e *DuplicateName) Error() string {
	return fmt.Sprintf("duplicate %s %s", e.Kind, e.Name)
}

// UnresolvedReference reports one dangling typeRef/elementRef/base/
// group reference: referrer depends on Name but no declaration of Kind
// named Name was found in the TypeMap.
type UnresolvedReference struct {
	Name     xsd.QName
	Kind     DeclKind
	Referrer NodeID
}

func (e *UnresolvedReference) Error() string {
	return fmt.Sprintf("%s references unresolved %s %s", e.Referrer.Name, e.Kind, e.Name)
}

// UnresolvedReferences batches every UnresolvedReference found during
// one Resolve call, per §7's "Resolver errors are batched" policy.
type UnresolvedReferences struct {
	Refs []*UnresolvedReference
}

func (e *UnresolvedReferences) Error() string {
	parts := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		parts[i] = r.Error()
	}
	return fmt.Sprintf("%d unresolved reference(s): %s", len(e.Refs), strings.Join(parts, "; "))
}
