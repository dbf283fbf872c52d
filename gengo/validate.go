package gengo

import (
	"fmt"
	"io"
	"strings"

	"github.com/soapkit/wsdlc/ir"
)

// writeStringEnum renders an IR.StringEnum as a named string type plus
// a Validate method. Membership checks use a plain switch; a pattern
// facet (XSD xs:pattern, a superset of RE2 with lookaround and
// backreferences regexp can't express) is checked with regexp2, which
// can.
func (e *emitter) writeStringEnum(w io.Writer, n *ir.Node) error {
	e.needsStdPkg["fmt"] = true
	writeComments(w, n.Name, n.Name+" is restricted to a fixed set of string values.")
	fmt.Fprintf(w, "type %s string\n\n", n.Name)

	if len(n.SEnum.Cases) > 0 {
		fmt.Fprintf(w, "func (v %s) Validate() error {\n", n.Name)
		fmt.Fprintf(w, "\tswitch v {\n\tcase ")
		quoted := make([]string, len(n.SEnum.Cases))
		for i, c := range n.SEnum.Cases {
			quoted[i] = fmt.Sprintf("%q", c)
		}
		fmt.Fprintf(w, "%s:\n\t\treturn nil\n\t}\n", strings.Join(quoted, ", "))
		fmt.Fprintf(w, "\treturn fmt.Errorf(%q, string(v))\n", "invalid "+n.Name+" value %q")
		fmt.Fprintf(w, "}\n\n")
	}

	if n.SEnum.Pattern != "" {
		e.needsExtPkg["github.com/dlclark/regexp2"] = true
		varName := lowerFirst(n.Name) + "Pattern"
		fmt.Fprintf(w, "var %s = regexp2.MustCompile(%q, regexp2.None)\n\n", varName, n.SEnum.Pattern)
		recv := "ValidatePattern"
		if len(n.SEnum.Cases) == 0 {
			recv = "Validate"
		}
		fmt.Fprintf(w, "func (v %s) %s() error {\n", n.Name, recv)
		fmt.Fprintf(w, "\tok, err := %s.MatchString(string(v))\n", varName)
		fmt.Fprintf(w, "\tif err != nil {\n\t\treturn err\n\t}\n")
		fmt.Fprintf(w, "\tif !ok {\n\t\treturn fmt.Errorf(%q, string(v))\n\t}\n", n.Name+" value %q does not match its pattern")
		fmt.Fprintf(w, "\treturn nil\n}\n\n")
	}
	return nil
}
