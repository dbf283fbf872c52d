package soap

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	XMLName xml.Name `xml:"GetWeatherRequest"`
	City    string   `xml:"City"`
}

type echoResponse struct {
	XMLName     xml.Name `xml:"GetWeatherResponse"`
	Temperature int      `xml:"Temperature"`
}

func newTestServer(t *testing.T, status int, body string, contentType string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
	}))
}

func TestRoundTripSuccess(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <GetWeatherResponse><Temperature>72</Temperature></GetWeatherResponse>
  </soap:Body>
</soap:Envelope>`, "text/xml; charset=utf-8")
	defer srv.Close()

	c := &Client{URL: srv.URL, SOAPAction: "urn:weather#GetWeather"}
	var out echoResponse
	err := c.RoundTrip(&echoRequest{City: "NYC"}, &out)
	require.NoError(t, err)
	require.Equal(t, 72, out.Temperature)
}

func TestRoundTripFaultUnderHTTP200(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>boom</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`, "text/xml")
	defer srv.Close()

	c := &Client{URL: srv.URL}
	var out echoResponse
	err := c.RoundTrip(&echoRequest{City: "NYC"}, &out)
	require.Error(t, err)
	var fault *SOAPFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, "soap:Server", fault.Code)
	require.Equal(t, "boom", fault.String)
}

func TestRoundTripFaultUnderHTTP500(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError,
		`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Client</faultcode>
      <faultstring>bad request</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`, "text/xml")
	defer srv.Close()

	c := &Client{URL: srv.URL}
	var out echoResponse
	err := c.RoundTrip(&echoRequest{City: "NYC"}, &out)
	var fault *SOAPFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, "soap:Client", fault.Code)
}

func TestRoundTripUnexpectedStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusNotFound, "not found", "text/xml")
	defer srv.Close()

	c := &Client{URL: srv.URL}
	var out echoResponse
	err := c.RoundTrip(&echoRequest{}, &out)
	var notOk *HTTPNotOk
	require.ErrorAs(t, err, &notOk)
	require.Equal(t, http.StatusNotFound, notOk.Code)
}

func TestRoundTripInvalidMimeType(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "<html/>", "text/html")
	defer srv.Close()

	c := &Client{URL: srv.URL}
	var out echoResponse
	err := c.RoundTrip(&echoRequest{}, &out)
	var mime *InvalidMimeType
	require.ErrorAs(t, err, &mime)
}

func TestRoundTripAsync(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <GetWeatherResponse><Temperature>10</Temperature></GetWeatherResponse>
  </soap:Body>
</soap:Envelope>`, "text/xml")
	defer srv.Close()

	c := &Client{URL: srv.URL}
	var out echoResponse
	done := make(chan error, 1)
	c.RoundTripAsync(&echoRequest{City: "NYC"}, &out, func(err error) { done <- err })
	require.NoError(t, <-done)
	require.Equal(t, 10, out.Temperature)
}
