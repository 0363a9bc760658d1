// Package httpsig implements RFC 9421 HTTP message signing and
// verification: signature-base construction, Signature-Input parameter
// parsing, and the sign/verify operations built on top of them.
package httpsig

import (
	"net/http"
	"net/url"
)

// Message is the capability set the canonicalizer needs from a request:
// a method, a target URI, headers, and an optional body. Any value that
// can expose these four things can be signed or verified — callers are
// not required to hold a concrete *http.Request.
type Message interface {
	Method() string
	URL() *url.URL
	Header() http.Header
	Body() []byte
}

// RequestMessage adapts a *http.Request (client or server side) to the
// Message interface. The body is not read from Req; the caller reads it
// beforehand and passes it as BodyRaw, since http.Request.Body is a
// single-read stream.
type RequestMessage struct {
	Req     *http.Request
	BodyRaw []byte
}

func (m *RequestMessage) Method() string      { return m.Req.Method }
func (m *RequestMessage) URL() *url.URL       { return m.Req.URL }
func (m *RequestMessage) Header() http.Header { return m.Req.Header }
func (m *RequestMessage) Body() []byte        { return m.BodyRaw }

// NewRequestMessage wraps req, attaching the already-buffered body b
// (nil or empty for bodyless requests).
func NewRequestMessage(req *http.Request, b []byte) *RequestMessage {
	return &RequestMessage{Req: req, BodyRaw: b}
}
