// Package soap provides a SOAP 1.1 HTTP client runtime for generated
// service clients, per §6 of the external interface and §5 of the
// concurrency model.
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// A RoundTripper executes a request passing the given req as the SOAP
// envelope body. The HTTP response is then de-serialized onto the resp
// object. Returns error in case an error occurs serializing req, making
// the HTTP request, or de-serializing the response.
type RoundTripper interface {
	RoundTrip(req, resp Message) error
}

// Message is an opaque type used by the RoundTripper to carry XML
// documents for SOAP.
type Message interface{}

// Header is an opaque type used as the SOAP Header element in requests.
type Header interface{}

// AuthHeader is a Header to be encoded as the SOAP Header element in
// requests, to convey credentials for authentication.
type AuthHeader struct {
	Namespace string `xml:"xmlns:ns,attr"`
	Username  string `xml:"ns:username"`
	Password  string `xml:"ns:password"`
}

// Client is a SOAP 1.1 client. The zero value is usable; URL must be
// set before a call.
type Client struct {
	URL         string              // URL of the server
	Namespace   string              // Namespace URI bound to the envelope's ns prefix
	Envelope    string              // Optional SOAP envelope attribute
	Header      Header              // Optional SOAP Header
	SOAPAction  string              // SOAPAction header value for this call
	ContentType string              // Optional Content-Type (default text/xml; charset=utf-8)
	HTTP        *http.Client        // Optional HTTP client
	Pre         func(*http.Request) // Optional hook to modify outbound requests
	Log         *zerolog.Logger     // Optional logger; nil defaults to the global logger
	Debug       bool                // Dump request/response to the log at debug level
}

// RoundTrip implements the RoundTripper interface: it sends in as the
// SOAP body, blocks for the HTTP response, and deserializes onto out.
// Every call is stamped with a correlation ID that this client's log
// lines for the call carry, so a request and its response can be tied
// together in those logs; the ID is not sent to the service.
func (c *Client) RoundTrip(in, out Message) error {
	id := uuid.New()
	logger := c.logger().With().Str("correlation_id", id.String()).Str("soap_action", c.SOAPAction).Logger()

	body, err := c.buildEnvelope(in)
	if err != nil {
		return err
	}

	ct := c.ContentType
	if ct == "" {
		ct = "text/xml; charset=utf-8"
	}

	req, err := http.NewRequest(http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", c.SOAPAction))
	if c.Pre != nil {
		c.Pre(req)
	}

	if c.Debug {
		dump, _ := httputil.DumpRequestOut(req, true)
		logger.Debug().Bytes("request", dump).Msg("soap round trip: request")
	}

	cli := c.HTTP
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("soap round trip: transport error")
		return err
	}
	defer resp.Body.Close()

	if c.Debug {
		dump, _ := httputil.DumpResponse(resp, true)
		logger.Debug().Bytes("response", dump).Msg("soap round trip: response")
	}

	err = c.decodeResponse(resp, out)
	if err != nil {
		logger.Debug().Err(err).Msg("soap round trip: failed")
	}
	return err
}

// RoundTripAsync runs RoundTrip on its own goroutine and invokes done
// with its result once the response has been deserialized (or the call
// has failed). Per §5, ordering is guaranteed only within a single
// call: the request is sent before done fires, but done calls from
// distinct RoundTripAsync calls may arrive in any order.
func (c *Client) RoundTripAsync(in, out Message, done func(error)) {
	go func() {
		done(c.RoundTrip(in, out))
	}()
}

func (c *Client) logger() zerolog.Logger {
	if c.Log != nil {
		return *c.Log
	}
	return log.Logger
}

func (c *Client) buildEnvelope(in Message) ([]byte, error) {
	req := &envelope{
		EnvelopeAttr: c.Envelope,
		NSAttr:       c.Namespace,
		Header:       envelopeHeader{Content: c.Header},
		Body:         envelopeBody{Message: in},
	}
	if req.EnvelopeAttr == "" {
		req.EnvelopeAttr = "http://schemas.xmlsoap.org/soap/envelope/"
	}
	var b bytes.Buffer
	if _, err := b.WriteString(xml.Header); err != nil {
		return nil, err
	}
	if err := xml.NewEncoder(&b).Encode(req); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// decodeResponse implements §6's response validation and Fault mapping.
func (c *Client) decodeResponse(resp *http.Response, out Message) error {
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/xml") {
		return &InvalidMimeType{ContentType: ct}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return &XMLParseError{Location: "response body", Cause: err}
	}
	raw = RemoveNonUTF8Bytes(raw)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return &HTTPNotOk{Code: resp.StatusCode, Body: string(raw)}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return &XMLParseError{Location: "response body", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return &XMLParseError{Location: "response body", Cause: fmt.Errorf("empty document")}
	}
	bodyEl := root.SelectElement("Body")
	if bodyEl == nil {
		return &XMLParseError{Location: "Envelope", Cause: fmt.Errorf("missing Body element")}
	}

	if faultEl := bodyEl.SelectElement("Fault"); faultEl != nil {
		return parseFault(faultEl)
	}

	if out == nil {
		// one-way operation: caller doesn't care about the body, only
		// that the call didn't come back as a Fault.
		return nil
	}

	children := bodyEl.ChildElements()
	if len(children) == 0 {
		return &DeserializationFailure{Path: "Body", Reason: "empty body"}
	}
	inner, err := elementToBytes(children[0])
	if err != nil {
		return &DeserializationFailure{Path: children[0].Tag, Reason: err.Error()}
	}
	if err := xml.Unmarshal(inner, out); err != nil {
		return &DeserializationFailure{Path: children[0].Tag, Reason: err.Error()}
	}
	return nil
}

func parseFault(faultEl *etree.Element) *SOAPFault {
	f := &SOAPFault{}
	if e := faultEl.SelectElement("faultcode"); e != nil {
		f.Code = strings.TrimSpace(e.Text())
	}
	if e := faultEl.SelectElement("faultstring"); e != nil {
		f.String = strings.TrimSpace(e.Text())
	}
	if e := faultEl.SelectElement("faultactor"); e != nil {
		f.Actor = strings.TrimSpace(e.Text())
	}
	if e := faultEl.SelectElement("detail"); e != nil {
		detail, err := elementToBytes(e)
		if err == nil {
			f.Detail = string(detail)
		}
	}
	return f
}

func elementToBytes(e *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	return doc.WriteToBytes()
}

// envelope is a SOAP 1.1 envelope.
type envelope struct {
	XMLName      xml.Name `xml:"SOAP-ENV:Envelope"`
	EnvelopeAttr string   `xml:"xmlns:SOAP-ENV,attr"`
	NSAttr       string   `xml:"xmlns:ns,attr,omitempty"`
	Header       envelopeHeader
	Body         envelopeBody
}

// envelopeBody is the body of a SOAP envelope.
type envelopeBody struct {
	XMLName xml.Name `xml:"SOAP-ENV:Body"`
	Message Message
}

// envelopeHeader is the header of a SOAP envelope, carrying the
// caller-supplied Header (e.g. AuthHeader) when present.
type envelopeHeader struct {
	XMLName xml.Name `xml:"SOAP-ENV:Header"`
	Content Header
}
