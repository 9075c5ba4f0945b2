// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dctdm

import "fmt"

// ErrorKind identifies the class of failure reported by an Error. It
// satisfies the error interface itself so callers can test for a class of
// failure with errors.Is(err, dctdm.ErrInvalidMarker), independent of the
// byte offset or pair index that accompanied a particular occurrence.
type ErrorKind string

func (k ErrorKind) Error() string { return string(k) }

// Parse error kinds, see spec §7.
const (
	ErrUnexpectedEndOfStream ErrorKind = "UnexpectedEndOfStream"
	ErrInvalidMarker         ErrorKind = "InvalidMarker"
	ErrInvalidHuffmanCode    ErrorKind = "InvalidHuffmanCode"
	ErrInvalidSegmentLength  ErrorKind = "InvalidSegmentLength"
	ErrMissingRestartMarker  ErrorKind = "MissingRestartMarker"
	ErrUnsupportedMode       ErrorKind = "UnsupportedMode"
	ErrUnsupportedPrecision  ErrorKind = "UnsupportedPrecision"
	ErrUnsupportedArithmetic ErrorKind = "UnsupportedArithmeticCoding"
)

// Embed error kinds.
const (
	ErrPayloadTooLarge   ErrorKind = "PayloadTooLarge"
	ErrClampingExhausted ErrorKind = "ClampingExhausted"
)

// Extract error kinds.
const (
	ErrPayloadTruncated ErrorKind = "PayloadTruncated"
	ErrInvalidLength    ErrorKind = "InvalidLength"
)

// Transform error kinds.
const (
	ErrAuthenticationFailed ErrorKind = "AuthenticationFailed"
	ErrMalformedCiphertext  ErrorKind = "MalformedCiphertext"
)

// Control error kinds.
const (
	ErrCancelled ErrorKind = "Cancelled"
)

// ErrInvalidConfiguration is not one of the error kinds enumerated in the
// specification; it is this implementation's addition for Config.Validate,
// which the original DCTDM_GUI.py performs ad hoc before ever touching an
// image (see SPEC_FULL.md "Supplemented features").
const ErrInvalidConfiguration ErrorKind = "InvalidConfiguration"

// Error is the concrete error type returned by every exported operation in
// this package for the failures it detects; an error from the caller's
// io.Reader (other than a premature end of input) or io.Writer is returned
// unchanged. It always carries a Kind; Offset and Pair are set to -1
// when not applicable to that Kind.
type Error struct {
	Kind    ErrorKind
	Offset  int64  // byte offset into the input stream, or -1
	Pair    int    // AC-pair index within the coefficient plane, or -1
	Message string // human-readable detail, may be empty
}

func (e *Error) Error() string {
	switch {
	case e.Offset >= 0 && e.Pair >= 0:
		return fmt.Sprintf("dctdm: %s at offset %d, pair %d: %s", e.Kind, e.Offset, e.Pair, e.Message)
	case e.Offset >= 0:
		return fmt.Sprintf("dctdm: %s at offset %d: %s", e.Kind, e.Offset, e.Message)
	case e.Pair >= 0:
		return fmt.Sprintf("dctdm: %s at pair %d: %s", e.Kind, e.Pair, e.Message)
	default:
		return fmt.Sprintf("dctdm: %s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// parseErr builds a parse-stage Error anchored to a byte offset.
func parseErr(kind ErrorKind, offset int64, msg string) *Error {
	return &Error{Kind: kind, Offset: offset, Pair: -1, Message: msg}
}

// pairErr builds an embed/extract-stage Error anchored to an AC-pair index.
func pairErr(kind ErrorKind, pair int, msg string) *Error {
	return &Error{Kind: kind, Offset: -1, Pair: pair, Message: msg}
}

// plainErr builds an Error with no positional context.
func plainErr(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Offset: -1, Pair: -1, Message: msg}
}
