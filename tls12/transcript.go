package tls12

import (
	"crypto"
	"fmt"
	"hash"
)

// Handshake transcript hashing. TLS 1.2 hashes every handshake message in
// exchange order; the digest feeds the Finished verify_data and the
// extended master secret session hash.

// TranscriptHash accumulates handshake messages and produces running
// digests. SHA-256 is always tracked; SHA-384 is tracked additionally for
// the suites that need it. The raw transcript is retained so a digest can
// be taken at any handshake point, as often as needed.
type TranscriptHash struct {
	algs       map[crypto.Hash]func() hash.Hash
	transcript []byte
}

// NewTranscriptHash configures the accumulator. Callers list the algorithms
// their suites may select; SHA-256 is included whether or not it is named.
func NewTranscriptHash(algs ...crypto.Hash) (*TranscriptHash, error) {
	t := &TranscriptHash{
		algs:       make(map[crypto.Hash]func() hash.Hash),
		transcript: make([]byte, 0, 4096),
	}
	for _, alg := range append([]crypto.Hash{crypto.SHA256}, algs...) {
		if alg != crypto.SHA256 && alg != crypto.SHA384 {
			return nil, &CryptoError{Type: ErrorUnsupportedSuite, Message: fmt.Sprintf("unsupported transcript hash: %v", alg)}
		}
		hashFunc, err := HashFunc(alg)
		if err != nil {
			return nil, err
		}
		t.algs[alg] = hashFunc
	}
	return t, nil
}

// Update appends one handshake message (header included, record layer
// excluded) to the transcript.
func (t *TranscriptHash) Update(message []byte) {
	t.transcript = append(t.transcript, message...)
}

// Digest returns the configured algorithm's hash over every byte fed so
// far. The accumulator is not consumed; further updates continue from the
// same transcript.
func (t *TranscriptHash) Digest(alg crypto.Hash) ([]byte, error) {
	hashFunc, ok := t.algs[alg]
	if !ok {
		return nil, &CryptoError{Type: ErrorUnsupportedSuite, Message: fmt.Sprintf("transcript hash not configured: %v", alg)}
	}
	h := hashFunc()
	h.Write(t.transcript)
	return h.Sum(nil), nil
}

// Reset rewinds the transcript for a new handshake.
func (t *TranscriptHash) Reset() {
	t.transcript = t.transcript[:0]
}

// Bytes returns a copy of the raw transcript accumulated so far.
func (t *TranscriptHash) Bytes() []byte {
	raw := make([]byte, len(t.transcript))
	copy(raw, t.transcript)
	return raw
}

// Len returns the transcript size in bytes.
func (t *TranscriptHash) Len() int {
	return len(t.transcript)
}
