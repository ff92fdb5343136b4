package natsx

import (
	"os"

	"github.com/nats-io/nats.go"
)

// DefaultName is the client name reported to the NATS server.
const DefaultName = "roost"

// URL returns the NATS server url from ROOST_NATS_URL, then NATS_URL, then
// nats.DefaultURL.
func URL() string {
	if u := os.Getenv("ROOST_NATS_URL"); u != "" {
		return u
	}
	if u := os.Getenv("NATS_URL"); u != "" {
		return u
	}
	return nats.DefaultURL
}

// NewClient creates a new connection to the NATS server at url. When url is
// empty the URL function decides. Without options the connection is named
// "roost" and compression is enabled.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = URL()
	}
	if len(opts) == 0 {
		opts = append(opts, nats.Name(DefaultName), nats.Compression(true))
	}
	return nats.Connect(url, opts...)
}
