package pipeline

import (
	"crypto/tls"
	"net/http"
)

// insecureClient returns a shallow copy of cli whose Transport skips
// TLS certificate verification, for the --yolo/--insecure escape hatch
// the teacher's main.go offers for self-signed WSDL endpoints.
func insecureClient(cli *http.Client) *http.Client {
	clone := *cli
	clone.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &clone
}
