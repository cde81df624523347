package tls12

import "fmt"

// CryptoErrorType classifies failures of the derivation, record-protection
// and signature-encoding layers.
type CryptoErrorType int

const (
	ErrorUnsupportedSuite CryptoErrorType = iota
	ErrorKeyMaterial
	ErrorEncoding
	ErrorDecoding
	ErrorRecordOverflow
	ErrorSequenceOverflow
	ErrorAuthentication
	ErrorVerifyData
)

// CryptoError is a structured error that maps onto a TLS alert, so the
// (external) handshake layer can surface failures on the wire.
type CryptoError struct {
	Type    CryptoErrorType
	Message string
	Err     error // Underlying error if any
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// AlertLevel returns the TLS alert level for this error. Every failure at
// this layer is fatal to the record or handshake step that caused it.
func (e *CryptoError) AlertLevel() uint8 {
	return alertLevelFatal
}

// AlertDescription returns the TLS alert carried by this error.
func (e *CryptoError) AlertDescription() uint8 {
	switch e.Type {
	case ErrorUnsupportedSuite:
		return alertHandshakeFailure
	case ErrorKeyMaterial, ErrorEncoding, ErrorSequenceOverflow:
		return alertInternalError
	case ErrorDecoding:
		return alertDecodeError
	case ErrorRecordOverflow:
		return alertRecordOverflow
	case ErrorAuthentication:
		return alertBadRecordMAC
	case ErrorVerifyData:
		return alertDecryptError
	default:
		return alertInternalError
	}
}

// AlertName returns the standard name of the alert this error maps to.
func (e *CryptoError) AlertName() string {
	return alertDescriptionString(e.AlertDescription())
}

// ErrAuthentication is the one error every failed record open returns.
// Callers learn nothing about where the authentication check diverged.
var ErrAuthentication = &CryptoError{Type: ErrorAuthentication, Message: "record authentication failed"}
