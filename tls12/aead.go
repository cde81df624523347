package tls12

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	aeadNonceLen = 12
	aeadAADLen   = 13
)

// RecordNonce builds the 12-byte per-record nonce: the fixed IV is copied
// in from the left and the big-endian sequence number is XORed into the
// last eight bytes. With a 4-byte fixed IV this produces the salt||seq
// layout of RFC 5288 and RFC 6655; with a 12-byte fixed IV it is the XOR
// construction of RFC 7905. One rule covers all three AEAD families.
func RecordNonce(fixedIV []byte, seq uint64) ([]byte, error) {
	if len(fixedIV) > aeadNonceLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("fixed IV length: got %d, want at most %d", len(fixedIV), aeadNonceLen)}
	}

	nonce := make([]byte, aeadNonceLen)
	copy(nonce, fixedIV)
	for i := 0; i < 8; i++ {
		nonce[aeadNonceLen-1-i] ^= byte(seq >> (8 * i))
	}
	return nonce, nil
}

// RecordAAD builds the 13 bytes of additional authenticated data:
// seq_num(8) || type(1) || version(2) || length(2). The length field is
// the plaintext length, never the wire fragment length.
func RecordAAD(seq uint64, recordType uint8, version uint16, length int) []byte {
	aad := make([]byte, aeadAADLen)
	binary.BigEndian.PutUint64(aad[0:8], seq)
	aad[8] = recordType
	binary.BigEndian.PutUint16(aad[9:11], version)
	binary.BigEndian.PutUint16(aad[11:13], uint16(length))
	return aad
}

// NewAEAD builds the suite's AEAD from a raw traffic key. CBC suites
// carry no AEAD and are rejected.
func NewAEAD(spec *CipherSpec, key []byte) (cipher.AEAD, error) {
	if len(key) != spec.KeyLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("%s key length: got %d, want %d", spec.Name, len(key), spec.KeyLen)}
	}

	switch spec.Kind {
	case KindAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "failed to create AES cipher", Err: err}
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "failed to create GCM", Err: err}
		}
		return aead, nil

	case KindAESCCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "failed to create AES cipher", Err: err}
		}
		return newCCM(block)

	case KindChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "failed to create ChaCha20-Poly1305", Err: err}
		}
		return aead, nil

	default:
		return nil, &CryptoError{Type: ErrorUnsupportedSuite, Message: fmt.Sprintf("%s is not an AEAD suite", spec.Name)}
	}
}

// SealRecord protects one record deterministically from explicit inputs
// and returns ciphertext || tag. The explicit nonce prefix of the GCM and
// CCM wire formats is framing rather than cryptography and is handled by
// RecordCipher, not here.
func SealRecord(spec *CipherSpec, key, fixedIV []byte, seq uint64, recordType uint8, version uint16, plaintext []byte) ([]byte, error) {
	if len(fixedIV) != spec.FixedIVLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("%s fixed IV length: got %d, want %d", spec.Name, len(fixedIV), spec.FixedIVLen)}
	}
	if len(plaintext) > maxPlaintext {
		return nil, &CryptoError{Type: ErrorRecordOverflow, Message: fmt.Sprintf("plaintext length %d exceeds %d", len(plaintext), maxPlaintext)}
	}

	aead, err := NewAEAD(spec, key)
	if err != nil {
		return nil, err
	}
	nonce, err := RecordNonce(fixedIV, seq)
	if err != nil {
		return nil, err
	}

	aad := RecordAAD(seq, recordType, version, len(plaintext))
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// OpenRecord authenticates and decrypts ciphertext || tag. Every failure
// surfaces as the single ErrAuthentication value so callers cannot tell
// a truncated body from a bad tag.
func OpenRecord(spec *CipherSpec, key, fixedIV []byte, seq uint64, recordType uint8, version uint16, body []byte) ([]byte, error) {
	if len(fixedIV) != spec.FixedIVLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("%s fixed IV length: got %d, want %d", spec.Name, len(fixedIV), spec.FixedIVLen)}
	}

	aead, err := NewAEAD(spec, key)
	if err != nil {
		return nil, err
	}
	if len(body) < aead.Overhead() {
		return nil, ErrAuthentication
	}

	nonce, err := RecordNonce(fixedIV, seq)
	if err != nil {
		return nil, err
	}

	aad := RecordAAD(seq, recordType, version, len(body)-aead.Overhead())
	plaintext, err := aead.Open(nil, nonce, body, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// RecordCipher is the stateful form of record protection for one side of
// a connection: AEADs built once at key installation, sequence numbers
// tracked per direction, and the explicit nonce prefix of the GCM and CCM
// wire formats applied and stripped here.
type RecordCipher struct {
	spec     *CipherSpec
	sealer   cipher.AEAD
	opener   cipher.AEAD
	writeIV  []byte
	readIV   []byte
	writeSeq uint64
	readSeq  uint64
}

// NewRecordCipher builds a record cipher from one side's quadrant of the
// key block. Write material protects outgoing records, read material
// opens incoming ones.
func NewRecordCipher(suite uint16, writeKey, writeIV, readKey, readIV []byte) (*RecordCipher, error) {
	spec, err := SuiteByID(suite)
	if err != nil {
		return nil, err
	}
	if len(writeIV) != spec.FixedIVLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("%s write IV length: got %d, want %d", spec.Name, len(writeIV), spec.FixedIVLen)}
	}
	if len(readIV) != spec.FixedIVLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("%s read IV length: got %d, want %d", spec.Name, len(readIV), spec.FixedIVLen)}
	}

	sealer, err := NewAEAD(spec, writeKey)
	if err != nil {
		return nil, err
	}
	opener, err := NewAEAD(spec, readKey)
	if err != nil {
		return nil, err
	}

	rc := &RecordCipher{
		spec:    spec,
		sealer:  sealer,
		opener:  opener,
		writeIV: make([]byte, len(writeIV)),
		readIV:  make([]byte, len(readIV)),
	}
	copy(rc.writeIV, writeIV)
	copy(rc.readIV, readIV)
	return rc, nil
}

// Suite returns the cipher suite this record cipher was built for.
func (rc *RecordCipher) Suite() *CipherSpec {
	return rc.spec
}

// Encrypt protects one outgoing record and returns the wire fragment:
// explicit_nonce || ciphertext || tag for GCM and CCM suites, bare
// ciphertext || tag for ChaCha20-Poly1305. The write sequence number
// advances only on success.
func (rc *RecordCipher) Encrypt(recordType uint8, version uint16, plaintext []byte) ([]byte, error) {
	if len(plaintext) > maxPlaintext {
		return nil, &CryptoError{Type: ErrorRecordOverflow, Message: fmt.Sprintf("plaintext length %d exceeds %d", len(plaintext), maxPlaintext)}
	}
	if rc.writeSeq == ^uint64(0) {
		return nil, &CryptoError{Type: ErrorSequenceOverflow, Message: "write sequence number exhausted"}
	}

	nonce, err := RecordNonce(rc.writeIV, rc.writeSeq)
	if err != nil {
		return nil, err
	}
	aad := RecordAAD(rc.writeSeq, recordType, version, len(plaintext))

	var out []byte
	if rc.spec.ExplicitIVLen > 0 {
		// RFC 5288/6655: the explicit nonce on the wire is the
		// sequence number itself
		out = make([]byte, rc.spec.ExplicitIVLen, rc.spec.ExplicitIVLen+len(plaintext)+rc.sealer.Overhead())
		binary.BigEndian.PutUint64(out, rc.writeSeq)
	}
	out = rc.sealer.Seal(out, nonce, plaintext, aad)

	rc.writeSeq++
	return out, nil
}

// Decrypt opens one incoming wire fragment. The nonce is rebuilt from the
// read IV and, for explicit nonce suites, its tail is overwritten with
// the bytes actually received, while the AAD always carries the local
// read sequence number. A reordered or replayed record therefore fails
// authentication. The read sequence number advances only on success.
func (rc *RecordCipher) Decrypt(recordType uint8, version uint16, body []byte) ([]byte, error) {
	if len(body) > maxCiphertext {
		return nil, &CryptoError{Type: ErrorRecordOverflow, Message: fmt.Sprintf("fragment length %d exceeds %d", len(body), maxCiphertext)}
	}
	if rc.readSeq == ^uint64(0) {
		return nil, &CryptoError{Type: ErrorSequenceOverflow, Message: "read sequence number exhausted"}
	}
	if len(body) < rc.spec.ExplicitIVLen+rc.opener.Overhead() {
		return nil, ErrAuthentication
	}

	nonce, err := RecordNonce(rc.readIV, rc.readSeq)
	if err != nil {
		return nil, err
	}
	explicit := body[:rc.spec.ExplicitIVLen]
	body = body[rc.spec.ExplicitIVLen:]
	copy(nonce[aeadNonceLen-len(explicit):], explicit)

	aad := RecordAAD(rc.readSeq, recordType, version, len(body)-rc.opener.Overhead())
	plaintext, err := rc.opener.Open(nil, nonce, body, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	if len(plaintext) > maxPlaintext {
		return nil, &CryptoError{Type: ErrorRecordOverflow, Message: fmt.Sprintf("plaintext length %d exceeds %d", len(plaintext), maxPlaintext)}
	}

	rc.readSeq++
	return plaintext, nil
}

// WriteSequence returns the sequence number the next outgoing record
// will use.
func (rc *RecordCipher) WriteSequence() uint64 {
	return rc.writeSeq
}

// ReadSequence returns the sequence number expected on the next incoming
// record.
func (rc *RecordCipher) ReadSequence() uint64 {
	return rc.readSeq
}

// ResetSequences rewinds both directions to zero, as after a key change.
func (rc *RecordCipher) ResetSequences() {
	rc.writeSeq = 0
	rc.readSeq = 0
}
