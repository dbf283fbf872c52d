package gengo

import (
	"fmt"
	"io"

	"github.com/soapkit/wsdlc/ir"
)

// writeServiceClient renders an IR.ServiceClient as a struct wrapping
// the soap runtime client, a constructor, and one typed method per
// operation, per §4.5's round-trip contract for generated clients.
func (e *emitter) writeServiceClient(w io.Writer, n *ir.Node) error {
	e.needsExtPkg[e.opts.RuntimePackage] = true
	runtime := runtimePackageName(e.opts.RuntimePackage)

	writeComments(w, n.Name, n.Name+" calls the "+n.Namespace+" service over SOAP 1.1.")
	fmt.Fprintf(w, "type %s struct {\n\tcli *%s.Client\n}\n\n", n.Name, runtime)

	ctor := "New" + n.Name
	writeComments(w, ctor, ctor+" returns a client bound to url; url overrides the WSDL-declared endpoint when non-empty.")
	fmt.Fprintf(w, "func %s(url string) *%s {\n", ctor, n.Name)
	fmt.Fprintf(w, "\tif url == \"\" {\n\t\turl = %q\n\t}\n", n.Service.Endpoint)
	fmt.Fprintf(w, "\treturn &%s{cli: &%s.Client{URL: url}}\n}\n\n", n.Name, runtime)

	writeComments(w, n.Name+".Client", "Client returns the underlying runtime client, for callers that need to set Header, Debug, HTTP or Pre.")
	fmt.Fprintf(w, "func (c *%s) Client() *%s.Client {\n\treturn c.cli\n}\n\n", n.Name, runtime)

	for _, op := range n.Service.Operations {
		if err := e.writeOp(w, n.Name, op); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) writeOp(w io.Writer, recv string, op ir.Op) error {
	inType := "*" + op.Input.Name
	if op.OneWay || op.Output == nil {
		writeComments(w, op.Name, op.Name+" is a one-way operation: it waits for the HTTP response and returns any SOAP Fault as an error, but decodes no typed response body.")
		fmt.Fprintf(w, "func (c *%s) %s(in %s) error {\n", recv, op.Name, inType)
		fmt.Fprintf(w, "\tc.cli.SOAPAction = %q\n", op.SOAPAction)
		fmt.Fprintf(w, "\treturn c.cli.RoundTrip(in, nil)\n}\n\n")
		return nil
	}

	outType := "*" + op.Output.Name
	writeComments(w, op.Name, "")
	fmt.Fprintf(w, "func (c *%s) %s(in %s) (%s, error) {\n", recv, op.Name, inType, outType)
	fmt.Fprintf(w, "\tc.cli.SOAPAction = %q\n", op.SOAPAction)
	fmt.Fprintf(w, "\tout := &%s{}\n", op.Output.Name)
	fmt.Fprintf(w, "\tif err := c.cli.RoundTrip(in, out); err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(w, "\treturn out, nil\n}\n\n")
	return nil
}

func runtimePackageName(importPath string) string {
	for i := len(importPath) - 1; i >= 0; i-- {
		if importPath[i] == '/' {
			return importPath[i+1:]
		}
	}
	return importPath
}
