package tls12

import (
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// TLS version constants (following Go's crypto/tls conventions)
const (
	VersionTLS10 = 0x0301
	VersionTLS11 = 0x0302
	VersionTLS12 = 0x0303
)

// Record content types (RFC 5246 Section 6.2.1)
const (
	RecordTypeChangeCipherSpec uint8 = 20
	RecordTypeAlert            uint8 = 21
	RecordTypeHandshake        uint8 = 22
	RecordTypeApplicationData  uint8 = 23
)

// TLS 1.2 cipher suite identifiers (following Go's crypto/tls constants)
const (
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA            = 0xc013
	TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA384         = 0xc028
	TLS_ECDHE_ECDSA_WITH_AES_128_CCM              = 0xc0ac
	TLS_ECDHE_ECDSA_WITH_AES_256_CCM              = 0xc0ad
	TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256         = 0xc02f
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256       = 0xc02b
	TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384         = 0xc030
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384       = 0xc02c
	TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256   = 0xcca8
	TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 = 0xcca9
)

// CipherKind identifies the bulk encryption algorithm of a cipher suite.
type CipherKind int

const (
	KindAESGCM CipherKind = iota
	KindAESCCM
	KindChaCha20Poly1305
	KindAESCBC
)

// CipherSpec describes the key material layout and algorithms of one cipher
// suite. Every size used to slice the key block comes from here, so no
// caller ever sizes key material by hand.
type CipherSpec struct {
	ID            uint16
	Name          string
	Kind          CipherKind
	KeyLen        int         // bulk cipher key length
	MacLen        int         // MAC key length, zero for AEAD suites
	FixedIVLen    int         // implicit IV from the key block
	ExplicitIVLen int         // per-record explicit nonce on the wire
	Hash          crypto.Hash // PRF and transcript hash
}

// IsAEAD reports whether the suite protects records with an AEAD cipher.
// CBC suites appear in the registry for key-block derivation only.
func (cs *CipherSpec) IsAEAD() bool {
	return cs.Kind != KindAESCBC
}

// keyBlockLen returns the number of "key expansion" output bytes the suite
// consumes: two MAC keys, two bulk keys, two fixed IVs.
func (cs *CipherSpec) keyBlockLen() int {
	return 2 * (cs.MacLen + cs.KeyLen + cs.FixedIVLen)
}

// prfHashFunc returns the hash constructor for the suite's PRF.
func (cs *CipherSpec) prfHashFunc() func() hash.Hash {
	if cs.Hash == crypto.SHA384 {
		return sha512.New384
	}
	return sha256.New
}

var cipherSpecs = []*CipherSpec{
	{
		ID:            TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		Name:          "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
		Kind:          KindAESGCM,
		KeyLen:        16,
		FixedIVLen:    4,
		ExplicitIVLen: 8,
		Hash:          crypto.SHA256,
	},
	{
		ID:            TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		Name:          "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
		Kind:          KindAESGCM,
		KeyLen:        16,
		FixedIVLen:    4,
		ExplicitIVLen: 8,
		Hash:          crypto.SHA256,
	},
	{
		ID:            TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		Name:          "TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
		Kind:          KindAESGCM,
		KeyLen:        32,
		FixedIVLen:    4,
		ExplicitIVLen: 8,
		Hash:          crypto.SHA384,
	},
	{
		ID:            TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		Name:          "TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384",
		Kind:          KindAESGCM,
		KeyLen:        32,
		FixedIVLen:    4,
		ExplicitIVLen: 8,
		Hash:          crypto.SHA384,
	},
	{
		ID:         TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		Name:       "TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256",
		Kind:       KindChaCha20Poly1305,
		KeyLen:     32,
		FixedIVLen: 12,
		Hash:       crypto.SHA256,
	},
	{
		ID:         TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		Name:       "TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256",
		Kind:       KindChaCha20Poly1305,
		KeyLen:     32,
		FixedIVLen: 12,
		Hash:       crypto.SHA256,
	},
	{
		ID:            TLS_ECDHE_ECDSA_WITH_AES_128_CCM,
		Name:          "TLS_ECDHE_ECDSA_WITH_AES_128_CCM",
		Kind:          KindAESCCM,
		KeyLen:        16,
		FixedIVLen:    4,
		ExplicitIVLen: 8,
		Hash:          crypto.SHA256,
	},
	{
		ID:            TLS_ECDHE_ECDSA_WITH_AES_256_CCM,
		Name:          "TLS_ECDHE_ECDSA_WITH_AES_256_CCM",
		Kind:          KindAESCCM,
		KeyLen:        32,
		FixedIVLen:    4,
		ExplicitIVLen: 8,
		Hash:          crypto.SHA256,
	},
	{
		ID:         TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
		Name:       "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA",
		Kind:       KindAESCBC,
		KeyLen:     16,
		MacLen:     20,
		FixedIVLen: 16,
		Hash:       crypto.SHA256,
	},
	{
		ID:         TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA384,
		Name:       "TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA384",
		Kind:       KindAESCBC,
		KeyLen:     32,
		MacLen:     48,
		FixedIVLen: 16,
		Hash:       crypto.SHA384,
	},
}

// SuiteByID returns the CipherSpec for a cipher suite identifier.
func SuiteByID(id uint16) (*CipherSpec, error) {
	for _, cs := range cipherSpecs {
		if cs.ID == id {
			return cs, nil
		}
	}
	return nil, &CryptoError{Type: ErrorUnsupportedSuite, Message: fmt.Sprintf("unsupported cipher suite: 0x%04x", id)}
}

// SuiteByName returns the CipherSpec for an IANA cipher suite name.
func SuiteByName(name string) (*CipherSpec, error) {
	for _, cs := range cipherSpecs {
		if cs.Name == name {
			return cs, nil
		}
	}
	return nil, &CryptoError{Type: ErrorUnsupportedSuite, Message: fmt.Sprintf("unsupported cipher suite: %q", name)}
}

// HashFunc returns a constructor for the named hash algorithm. The PSS
// encoder accepts the full set; the PRF and transcript use SHA-256/SHA-384.
func HashFunc(alg crypto.Hash) (func() hash.Hash, error) {
	switch alg {
	case crypto.SHA1:
		return sha1.New, nil
	case crypto.SHA256:
		return sha256.New, nil
	case crypto.SHA384:
		return sha512.New384, nil
	case crypto.SHA512:
		return sha512.New, nil
	default:
		return nil, &CryptoError{Type: ErrorUnsupportedSuite, Message: fmt.Sprintf("unsupported hash algorithm: %v", alg)}
	}
}

// TLS alert levels
const (
	alertLevelWarning = 1
	alertLevelFatal   = 2
)

// TLS alert descriptions (RFC 5246 Section 7.2)
const (
	alertBadRecordMAC     = 20
	alertRecordOverflow   = 22
	alertHandshakeFailure = 40
	alertDecodeError      = 50
	alertDecryptError     = 51
	alertInternalError    = 80
)

func alertDescriptionString(d uint8) string {
	switch d {
	case alertBadRecordMAC:
		return "bad_record_mac"
	case alertRecordOverflow:
		return "record_overflow"
	case alertHandshakeFailure:
		return "handshake_failure"
	case alertDecodeError:
		return "decode_error"
	case alertDecryptError:
		return "decrypt_error"
	case alertInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}
