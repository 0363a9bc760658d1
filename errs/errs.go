// Package errs defines the typed error kinds used across the protocol
// core, per the error handling design: KeyError, SignatureError,
// DiscoveryError, and TrustError. Handlers in api/ translate these to
// HTTP status codes; nothing below this layer panics on routine
// failures.
package errs

import "errors"

// Kind identifies which of the four error families an error belongs to.
type Kind string

const (
	KindKey       Kind = "key_error"
	KindSignature Kind = "signature_error"
	KindDiscovery Kind = "discovery_error"
	KindTrust     Kind = "trust_error"
)

// Error wraps an underlying cause with a protocol-level Kind, so callers
// can branch on category (e.g. to pick an HTTP status code) without
// string-matching messages.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Key wraps err as a KeyError (key generation, parsing, encryption).
func Key(err error) error { return &Error{Kind: KindKey, Cause: err} }

// Signature wraps err as a SignatureError (canonicalization, freshness,
// replay, digest mismatch, algorithm downgrade).
func Signature(err error) error { return &Error{Kind: KindSignature, Cause: err} }

// Discovery wraps err as a DiscoveryError (registry transport, 4xx/5xx).
func Discovery(err error) error { return &Error{Kind: KindDiscovery, Cause: err} }

// Trust wraps err as a TrustError (validation, identity-not-found,
// circuit-open, cache/DB).
func Trust(err error) error { return &Error{Kind: KindTrust, Cause: err} }

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. The zero Kind and false are returned otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
