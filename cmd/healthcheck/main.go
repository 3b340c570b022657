// Package main is a minimal liveness probe for the product API, intended
// for distroless containers that ship no shell or curl. It exits 0 when
// the API's /health endpoint returns HTTP 200, and 1 otherwise. Compile
// with CGO_ENABLED=0 for a fully static binary.
package main

import (
	"net/http"
	"os"
)

func main() {
	addr := os.Getenv("PRODUCTAPI_HEALTH_URL")
	if addr == "" {
		addr = "http://localhost:8080/health"
	}

	resp, err := http.Get(addr)
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
