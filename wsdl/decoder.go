package wsdl

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/soapkit/wsdlc/fetch"
	"github.com/soapkit/wsdlc/xsd"
)

const (
	wsdlNS = "http://schemas.xmlsoap.org/wsdl/"
	soap11 = "http://schemas.xmlsoap.org/wsdl/soap/"
)

// Unmarshal parses the WSDL document read from r into a Description. It
// does not follow imports; use Load for that.
func Unmarshal(r io.Reader) (*Description, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	tok, err := nextStart(d)
	if err != nil {
		return nil, &xsd.XMLParseError{Location: "<root>", Cause: err}
	}
	if localName(tok.Name) != "definitions" {
		return nil, &xsd.MalformedSchema{Path: "<root>", Reason: "expected wsdl:definitions"}
	}
	return parseDefinitions(d, tok)
}

// Load parses the WSDL document at location (a file path or URL) and
// transitively follows every wsdl:import, merging each imported
// document's tables into the root Description, per §4.2. Already-loaded
// locations are skipped (import cycles short-circuit, per §5).
func Load(location string, cache *fetch.Cache) (*Description, error) {
	if cache == nil {
		cache = fetch.NewCache(nil)
	}
	root, err := loadOne(location, cache)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func loadOne(location string, cache *fetch.Cache) (*Description, error) {
	cache.Visit(location)
	f, err := cache.Open(location)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	desc, err := Unmarshal(f)
	if err != nil {
		return nil, err
	}
	if err := resolveSchemaImports(desc, location, cache); err != nil {
		return nil, err
	}
	return mergeImports(desc, location, cache)
}

// resolveSchemaImports follows every xs:import/xs:include of every
// schema inlined in desc, fetching and parsing each target document and
// flattening its nodes into desc.Schemas. Each location is resolved
// against the document that declared the import. Locations already seen
// via cache (including desc's own location) are skipped, so import cycles
// terminate per §5.
func resolveSchemaImports(desc *Description, location string, cache *fetch.Cache) error {
	type pending struct {
		s   *xsd.Schema
		loc string
	}
	var queue []pending
	for _, s := range desc.Schemas {
		queue = append(queue, pending{s, location})
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		refs := append(append([]*xsd.Import{}, p.s.Imports...), p.s.Includes...)
		for _, ref := range refs {
			if ref.Location == "" {
				continue
			}
			loc := fetch.Resolve(p.loc, ref.Location)
			if cache.Visit(loc) {
				continue
			}
			child, err := fetchSchema(loc, cache)
			if err != nil {
				return err
			}
			desc.Schemas = append(desc.Schemas, child)
			queue = append(queue, pending{child, loc})
		}
	}
	return nil
}

func fetchSchema(location string, cache *fetch.Cache) (*xsd.Schema, error) {
	f, err := cache.Open(location)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return xsd.ParseSchema(f)
}

// mergeImports follows every wsdl:import of desc, parsing the imported
// WSDL document and merging its tables into desc. Already-visited
// locations are skipped so import cycles terminate per §5.
func mergeImports(desc *Description, location string, cache *fetch.Cache) (*Description, error) {
	imports := desc.pendingImports
	desc.pendingImports = nil
	for _, imp := range imports {
		if imp.Location == "" {
			continue
		}
		loc := fetch.Resolve(location, imp.Location)
		if cache.Visit(loc) {
			continue
		}
		child, err := loadOne(loc, cache)
		if err != nil {
			return nil, err
		}
		desc.Schemas = append(desc.Schemas, child.Schemas...)
		desc.Messages = append(desc.Messages, child.Messages...)
		desc.PortTypes = append(desc.PortTypes, child.PortTypes...)
		desc.Bindings = append(desc.Bindings, child.Bindings...)
		desc.Services = append(desc.Services, child.Services...)
	}
	return desc, nil
}

func localName(n xml.Name) string { return n.Local }

// isWSDLNS reports whether ns is the WSDL namespace, or empty — the
// latter covers decoders that leave unprefixed elements under a default
// xmlns namespace unresolved when no explicit schema is consulted.
func isWSDLNS(ns string) bool { return ns == "" || ns == wsdlNS }

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func attr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

type wsdlImport struct {
	Namespace string
	Location  string
}

func parseDefinitions(d *xml.Decoder, start xml.StartElement) (*Description, error) {
	desc := &Description{Namespaces: map[string]string{}}
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "xmlns":
			desc.Namespaces[a.Name.Local] = a.Value
		case a.Name.Local == "xmlns":
			desc.Namespaces[""] = a.Value
		case a.Name.Local == "targetNamespace":
			desc.TargetNamespace = a.Value
		}
	}
	qn := func(raw string) xsd.QName { return resolveQName(desc.Namespaces, desc.TargetNamespace, raw) }

	var imports []wsdlImport
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, &xsd.XMLParseError{Location: "definitions", Cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "import":
				imports = append(imports, wsdlImport{Namespace: attr(t, "namespace"), Location: attr(t, "location")})
				if err := skipElement(d); err != nil {
					return nil, err
				}
			case "types":
				if err := parseTypes(d, desc); err != nil {
					return nil, err
				}
			case "message":
				msg, err := parseMessage(d, t, qn)
				if err != nil {
					return nil, err
				}
				desc.Messages = append(desc.Messages, msg)
			case "portType":
				pt, err := parsePortType(d, t, qn)
				if err != nil {
					return nil, err
				}
				desc.PortTypes = append(desc.PortTypes, pt)
			case "binding":
				b, err := parseBinding(d, t, qn)
				if err != nil {
					var unsupported *UnsupportedBinding
					if !errors.As(err, &unsupported) {
						return nil, err
					}
					// non-SOAP-1.1 binding: skipped, not fatal, per §4.2.
				} else {
					desc.Bindings = append(desc.Bindings, b)
				}
			case "service":
				svc, err := parseService(d, t, qn)
				if err != nil {
					return nil, err
				}
				desc.Services = append(desc.Services, svc)
			case "documentation":
				if err := skipElement(d); err != nil {
					return nil, err
				}
			default:
				if err := skipElement(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name == start.Name {
				desc.pendingImports = imports
				if err := checkDuplicateNames(desc); err != nil {
					return nil, err
				}
				return desc, nil
			}
		}
	}
	desc.pendingImports = imports
	if err := checkDuplicateNames(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

// checkDuplicateNames reports the first repeated name within one kind of
// top-level declaration in a single WSDL document, per §7's DuplicateName.
func checkDuplicateNames(desc *Description) error {
	messages := map[xsd.QName]bool{}
	for _, m := range desc.Messages {
		if messages[m.Name] {
			return &DuplicateName{Name: m.Name, Kind: "message"}
		}
		messages[m.Name] = true
	}
	portTypes := map[xsd.QName]bool{}
	for _, p := range desc.PortTypes {
		if portTypes[p.Name] {
			return &DuplicateName{Name: p.Name, Kind: "portType"}
		}
		portTypes[p.Name] = true
	}
	bindings := map[xsd.QName]bool{}
	for _, b := range desc.Bindings {
		if bindings[b.Name] {
			return &DuplicateName{Name: b.Name, Kind: "binding"}
		}
		bindings[b.Name] = true
	}
	return nil
}

func skipElement(d *xml.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func resolveQName(namespaces map[string]string, targetNS, raw string) xsd.QName {
	if raw == "" {
		return xsd.QName{}
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return xsd.QName{Namespace: namespaces[raw[:i]], Local: raw[i+1:]}
		}
	}
	return xsd.QName{Namespace: targetNS, Local: raw}
}

func parseTypes(d *xml.Decoder, desc *Description) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "schema" {
				// prefixes declared on wsdl:definitions are in scope for
				// an inline xs:schema that doesn't redeclare them; they
				// are added before parsing so its QNames resolve with them.
				declared := map[string]bool{}
				for _, a := range t.Attr {
					if a.Name.Space == "xmlns" {
						declared[a.Name.Local] = true
					}
				}
				for prefix, ns := range desc.Namespaces {
					if prefix != "" && !declared[prefix] {
						t.Attr = append(t.Attr, xml.Attr{Name: xml.Name{Space: "xmlns", Local: prefix}, Value: ns})
					}
				}
				s, err := xsd.ParseSchemaElement(d, t)
				if err != nil {
					return err
				}
				if s.TargetNamespace == "" {
					s.TargetNamespace = desc.TargetNamespace
				}
				desc.Schemas = append(desc.Schemas, s)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func parseMessage(d *xml.Decoder, start xml.StartElement, qn func(string) xsd.QName) (*Message, error) {
	msg := &Message{Name: qn(attr(start, "name"))}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "part" {
				msg.Parts = append(msg.Parts, &Part{
					Name:    attr(t, "name"),
					Element: qn(attr(t, "element")),
					Type:    qn(attr(t, "type")),
				})
				if err := skipElement(d); err != nil {
					return nil, err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return msg, nil
}

func parsePortType(d *xml.Decoder, start xml.StartElement, qn func(string) xsd.QName) (*PortType, error) {
	pt := &PortType{Name: qn(attr(start, "name"))}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "operation" {
				op, err := parseOperation(d, t, qn)
				if err != nil {
					return nil, err
				}
				pt.Operations = append(pt.Operations, op)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return pt, nil
}

func parseOperation(d *xml.Decoder, start xml.StartElement, qn func(string) xsd.QName) (*Operation, error) {
	op := &Operation{Name: attr(start, "name"), Style: RequestResponse}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "input":
				op.Input = &MessageRef{Name: attr(t, "name"), Message: qn(attr(t, "message"))}
				if err := skipElement(d); err != nil {
					return nil, err
				}
				continue
			case "output":
				op.Output = &MessageRef{Name: attr(t, "name"), Message: qn(attr(t, "message"))}
				if err := skipElement(d); err != nil {
					return nil, err
				}
				continue
			case "fault":
				op.Faults = append(op.Faults, &MessageRef{Name: attr(t, "name"), Message: qn(attr(t, "message"))})
				if err := skipElement(d); err != nil {
					return nil, err
				}
				continue
			case "documentation":
				op.Doc = readCharData(d)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if op.Input == nil && op.Output == nil {
		return nil, &MissingRequiredChild{Parent: "operation " + op.Name, Name: "input or output"}
	}
	if op.Output == nil {
		op.Style = OneWay
	}
	return op, nil
}

func readCharData(d *xml.Decoder) string {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return sb.String()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		case xml.EndElement:
			depth--
		}
	}
	return sb.String()
}

func parseBinding(d *xml.Decoder, start xml.StartElement, qn func(string) xsd.QName) (*Binding, error) {
	b := &Binding{
		Name:     qn(attr(start, "name")),
		PortType: qn(attr(start, "type")),
	}
	var soapSeen bool
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "binding" && t.Name.Space == soap11:
				soapSeen = true
				if attr(t, "style") == "rpc" {
					b.Style = RPC
				}
				b.Transport = attr(t, "transport")
				if err := skipElement(d); err != nil {
					return nil, err
				}
				continue
			case t.Name.Local == "operation" && isWSDLNS(t.Name.Space):
				bop, err := parseBindingOperation(d, t)
				if err != nil {
					return nil, err
				}
				b.Operations = append(b.Operations, bop)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if !soapSeen {
		return nil, &UnsupportedBinding{Name: b.Name}
	}
	return b, nil
}

func parseBindingOperation(d *xml.Decoder, start xml.StartElement) (*BindingOperation, error) {
	bop := &BindingOperation{Name: attr(start, "name")}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "operation" && t.Name.Space == soap11:
				bop.SOAPAction = attr(t, "soapAction")
				if err := skipElement(d); err != nil {
					return nil, err
				}
				continue
			case t.Name.Local == "input":
				use, err := parseBodyUse(d)
				if err != nil {
					return nil, err
				}
				bop.InputUse = use
				continue
			case t.Name.Local == "output":
				use, err := parseBodyUse(d)
				if err != nil {
					return nil, err
				}
				bop.OutputUse = use
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return bop, nil
}

// parseBodyUse consumes an <input> or <output> element of a SOAP binding
// operation, returning the Use of its soap:body child (Literal if none
// is present, per the common case).
func parseBodyUse(d *xml.Decoder) (Use, error) {
	use := Literal
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return use, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "body" && attr(t, "use") == "encoded" {
				use = Encoded
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return use, nil
}

func parseService(d *xml.Decoder, start xml.StartElement, qn func(string) xsd.QName) (*Service, error) {
	svc := &Service{Name: attr(start, "name")}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "port" {
				port, err := parsePort(d, t, qn)
				if err != nil {
					return nil, err
				}
				svc.Ports = append(svc.Ports, port)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return svc, nil
}

func parsePort(d *xml.Decoder, start xml.StartElement, qn func(string) xsd.QName) (*Port, error) {
	port := &Port{Name: attr(start, "name"), Binding: qn(attr(start, "binding"))}
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "address" {
				port.Address = attr(t, "location")
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return port, nil
}
