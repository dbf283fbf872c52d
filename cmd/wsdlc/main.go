// Command wsdlc generates a Go SOAP client package from a WSDL document.
package main

import "github.com/soapkit/wsdlc/cmd/wsdlc/cmd"

func main() {
	cmd.Execute()
}
