// Package gengo implements the Emitter stage (§4.5): a deterministic
// pretty-printer that renders IR nodes as Go source. It is the only
// package that knows Go's surface syntax; every other stage works in
// terms of the language-neutral ir package.
package gengo

import (
	"bufio"
	"bytes"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/soapkit/wsdlc/ir"
)

// Options configures one Emit call.
type Options struct {
	Package         string
	TargetNamespace string
	RuntimePackage  string // import path of the soap runtime package; defaults to this module's soap package
}

// Emit renders nodes as a single Go source file to w. Per §4.5,
// identical input produces byte-identical output: every internal map
// is ranged over in the deterministic order ir.Build already
// established, never its own incidental order.
func Emit(w io.Writer, nodes []*ir.Node, opts Options) error {
	e := &emitter{opts: opts, needsStdPkg: map[string]bool{}, needsExtPkg: map[string]bool{}}
	if e.opts.Package == "" {
		e.opts.Package = "client"
	}
	if e.opts.RuntimePackage == "" {
		e.opts.RuntimePackage = "github.com/soapkit/wsdlc/soap"
	}

	var body bytes.Buffer
	for _, n := range nodes {
		if err := e.writeNode(&body, n); err != nil {
			return err
		}
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "package %s\n\n", e.opts.Package)
	if len(e.needsStdPkg) > 0 || len(e.needsExtPkg) > 0 {
		out.WriteString("import (\n")
		for _, pkg := range sortedKeys(e.needsStdPkg) {
			fmt.Fprintf(&out, "\t%q\n", pkg)
		}
		if len(e.needsStdPkg) > 0 && len(e.needsExtPkg) > 0 {
			out.WriteString("\n")
		}
		for _, pkg := range sortedKeys(e.needsExtPkg) {
			fmt.Fprintf(&out, "\t%q\n", pkg)
		}
		out.WriteString(")\n\n")
	}
	if e.opts.TargetNamespace != "" {
		writeComments(&out, "Namespace", "Namespace is the target namespace this client was generated from.")
		fmt.Fprintf(&out, "const Namespace = %q\n\n", e.opts.TargetNamespace)
	}
	if _, err := io.Copy(&out, &body); err != nil {
		return err
	}

	return formatTo(w, out.Bytes())
}

type emitter struct {
	opts        Options
	needsStdPkg map[string]bool
	needsExtPkg map[string]bool
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (e *emitter) writeNode(w io.Writer, n *ir.Node) error {
	switch n.Kind {
	case ir.KindStruct:
		return e.writeStruct(w, n)
	case ir.KindEnum:
		return e.writeEnum(w, n)
	case ir.KindAlias:
		return e.writeAlias(w, n)
	case ir.KindStringEnum:
		return e.writeStringEnum(w, n)
	case ir.KindList:
		return e.writeList(w, n)
	case ir.KindServiceClient:
		return e.writeServiceClient(w, n)
	default:
		return &EmitError{Node: n.Name, Reason: fmt.Sprintf("unknown IR node kind %d", n.Kind)}
	}
}

func (e *emitter) goFieldType(ref ir.TypeRef, card ir.Cardinality) string {
	t := ref.Name
	if strings.Contains(t, ".") {
		e.needsStdPkg[strings.SplitN(t, ".", 2)[0]] = true
	}
	if ref.Indirect {
		t = "*" + t
	}
	switch card {
	case ir.Repeated:
		base := ref.Name
		if ref.Indirect {
			base = "*" + base
		}
		return "[]" + base
	case ir.Optional:
		if ref.Indirect {
			return t
		}
		return "*" + t
	default:
		return t
	}
}

func (e *emitter) writeStruct(w io.Writer, n *ir.Node) error {
	e.needsStdPkg["encoding/xml"] = true
	writeComments(w, n.Name, n.Name+" was generated from the "+n.Namespace+" schema.")
	fmt.Fprintf(w, "type %s struct {\n", n.Name)
	fmt.Fprintf(w, "\tXMLName xml.Name `xml:\"%s %s\"`\n", n.Namespace, n.Name)
	if n.Struct.Base != nil {
		fmt.Fprintf(w, "\t%s\n", n.Struct.Base.Name)
	}
	for _, f := range n.Struct.Fields {
		fmt.Fprintf(w, "\t%s %s `%s`\n", f.Name, e.goFieldType(f.Type, f.Cardinality), e.xmlTag(f))
	}
	fmt.Fprintf(w, "}\n\n")
	return nil
}

func (e *emitter) xmlTag(f ir.Field) string {
	name := f.XMLName
	if f.XMLNS != "" {
		name = f.XMLNS + " " + f.XMLName
	}
	var parts []string
	parts = append(parts, name)
	if f.Attribute {
		parts = append(parts, "attr")
	}
	if f.Cardinality != ir.Required || f.Attribute {
		parts = append(parts, "omitempty")
	}
	return fmt.Sprintf("xml:%q", strings.Join(parts, ","))
}

func (e *emitter) writeEnum(w io.Writer, n *ir.Node) error {
	e.needsStdPkg["encoding/xml"] = true
	writeComments(w, n.Name, n.Name+" represents exactly one of its fields, set.")
	fmt.Fprintf(w, "type %s struct {\n", n.Name)
	fmt.Fprintf(w, "\tXMLName xml.Name `xml:\"%s %s\"`\n", n.Namespace, n.Name)
	for _, v := range n.Enum.Variants {
		if v.Payload == nil {
			fmt.Fprintf(w, "\t%s bool `xml:\"%s,omitempty\"`\n", v.Name, lowerFirst(v.Name))
			continue
		}
		fmt.Fprintf(w, "\t%s *%s `xml:\"%s,omitempty\"`\n", v.Name, v.Payload.Name, lowerFirst(v.Name))
	}
	fmt.Fprintf(w, "}\n\n")
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func (e *emitter) writeAlias(w io.Writer, n *ir.Node) error {
	writeComments(w, n.Name, "")
	t := n.Alias.Target.Name
	if n.Alias.Target.Indirect {
		t = "*" + t
	}
	fmt.Fprintf(w, "type %s %s\n\n", n.Name, t)
	return nil
}

func (e *emitter) writeList(w io.Writer, n *ir.Node) error {
	writeComments(w, n.Name, "")
	t := n.List.Element.Name
	if n.List.Element.Indirect {
		t = "*" + t
	}
	fmt.Fprintf(w, "type %s []%s\n\n", n.Name, t)
	return nil
}

// writeComments writes comments to w, capped at ~60 columns, matching
// the teacher's line-wrapping style. An empty comment falls back to a
// generic one-liner; callers pass "" deliberately for types that don't
// need more than that, so doc density stays uneven across the file.
func writeComments(w io.Writer, name, comment string) {
	comment = strings.TrimSpace(strings.ReplaceAll(comment, "\n", " "))
	if comment == "" {
		comment = name + " was generated from WSDL."
	}
	count, line := 0, ""
	for _, word := range strings.Split(comment, " ") {
		if line == "" {
			count, line = 2, "//"
		}
		count += len(word)
		if count > 60 {
			fmt.Fprintf(w, "%s %s\n", line, word)
			count, line = 0, ""
			continue
		}
		line = line + " " + word
		count++
	}
	if line != "" {
		fmt.Fprintf(w, "%s\n", line)
	}
}

func gofmtPath() (string, error) {
	if goroot := os.Getenv("GOROOT"); goroot != "" {
		p := filepath.Join(goroot, "bin", "gofmt")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return exec.LookPath("gofmt")
}

// formatTo validates src as a parseable Go file, then pipes it through
// gofmt, same as the teacher's Encoder.Encode — a generator that
// produces source good enough to parse but not yet indented.
func formatTo(w io.Writer, src []byte) error {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "", src, parser.ParseComments); err != nil {
		var numbered bytes.Buffer
		s := bufio.NewScanner(bytes.NewReader(src))
		for line := 1; s.Scan(); line++ {
			fmt.Fprintf(&numbered, "%5d\t%s\n", line, s.Bytes())
		}
		return &EmitError{Reason: fmt.Sprintf("generated invalid Go source:\n%s", numbered.String()), Cause: err}
	}

	path, err := gofmtPath()
	if err != nil {
		return &EmitError{Reason: "cannot find gofmt", Cause: err}
	}
	var errb bytes.Buffer
	cmd := exec.Cmd{Path: path, Stdin: bytes.NewReader(src), Stdout: w, Stderr: &errb}
	if err := cmd.Run(); err != nil {
		return &EmitError{Reason: fmt.Sprintf("gofmt failed: %s", errb.String()), Cause: err}
	}
	return nil
}
