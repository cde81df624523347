package tls12

import (
	"crypto/hmac"
	"fmt"
	"hash"
)

// TLS 1.2 PRF and key derivation
// Based on RFC 5246 Section 5 (HMAC and the Pseudorandom Function),
// Section 6.3 (Key Calculation) and RFC 7627 (Extended Master Secret)

const (
	masterSecretLength = 48
	verifyDataLength   = 12
)

// pHash implements the P_hash function from RFC 5246
// P_hash(secret, seed) = HMAC_hash(secret, A(1) + seed) +
//
//	HMAC_hash(secret, A(2) + seed) +
//	HMAC_hash(secret, A(3) + seed) + ...
//
// where A(0) = seed
//
//	A(i) = HMAC_hash(secret, A(i-1))
func pHash(hashFunc func() hash.Hash, secret, seed []byte, length int) []byte {
	h := hmac.New(hashFunc, secret)
	h.Write(seed)
	a := h.Sum(nil) // A(1)

	result := make([]byte, 0, length)
	for len(result) < length {
		h.Reset()
		h.Write(a)
		h.Write(seed)
		b := h.Sum(nil)

		todo := len(b)
		if len(result)+todo > length {
			todo = length - len(result)
		}
		result = append(result, b[:todo]...)

		// Calculate A(i+1)
		h.Reset()
		h.Write(a)
		a = h.Sum(nil)
	}

	return result
}

// PRF implements the TLS 1.2 pseudorandom function:
// PRF(secret, label, seed) = P_hash(secret, label + seed), truncated to
// length bytes. A single named hash drives the whole expansion; there is
// no MD5/SHA-1 interleaving as in TLS 1.1 and earlier. A length of zero
// or less yields an empty slice.
func PRF(hashFunc func() hash.Hash, secret []byte, label string, seed []byte, length int) []byte {
	labelSeed := make([]byte, len(label)+len(seed))
	copy(labelSeed, label)
	copy(labelSeed[len(label):], seed)

	return pHash(hashFunc, secret, labelSeed, length)
}

// DeriveMasterSecret derives the master secret from the pre-master secret
// (RFC 5246 Section 8.1):
// master_secret = PRF(pre_master_secret, "master secret",
//
//	ClientHello.random + ServerHello.random)[0..47]
func DeriveMasterSecret(hashFunc func() hash.Hash, preMasterSecret, clientRandom, serverRandom []byte) []byte {
	seed := make([]byte, 0, len(clientRandom)+len(serverRandom))
	seed = append(seed, clientRandom...)
	seed = append(seed, serverRandom...)

	return PRF(hashFunc, preMasterSecret, "master secret", seed, masterSecretLength)
}

// DeriveMasterSecretExtended derives the master secret per RFC 7627:
// master_secret = PRF(pre_master_secret, "extended master secret",
// session_hash)[0..47], where session_hash is the transcript digest through
// the ClientKeyExchange message.
func DeriveMasterSecretExtended(hashFunc func() hash.Hash, preMasterSecret, sessionHash []byte) []byte {
	return PRF(hashFunc, preMasterSecret, "extended master secret", sessionHash, masterSecretLength)
}

// KeyBlock holds the connection key material sliced out of the
// "key expansion" PRF output, in derivation order. MAC keys are empty for
// AEAD suites.
type KeyBlock struct {
	ClientMACKey   []byte
	ServerMACKey   []byte
	ClientWriteKey []byte
	ServerWriteKey []byte
	ClientWriteIV  []byte
	ServerWriteIV  []byte
}

// DeriveKeyBlock expands the master secret into the connection key block
// (RFC 5246 Section 6.3):
// key_block = PRF(master_secret, "key expansion",
//
//	server_random + client_random)
//
// Note the seed order is inverted relative to the master secret derivation.
// All slice sizes come from the suite registry; sizing by hand would
// silently produce wrong keys with no error signal.
func DeriveKeyBlock(spec *CipherSpec, masterSecret, clientRandom, serverRandom []byte) (*KeyBlock, error) {
	if len(masterSecret) != masterSecretLength {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("master secret length: got %d, want %d", len(masterSecret), masterSecretLength)}
	}

	seed := make([]byte, 0, len(serverRandom)+len(clientRandom))
	seed = append(seed, serverRandom...)
	seed = append(seed, clientRandom...)

	material := PRF(spec.prfHashFunc(), masterSecret, "key expansion", seed, spec.keyBlockLen())

	kb := &KeyBlock{}
	offset := 0
	next := func(n int) []byte {
		part := make([]byte, n)
		copy(part, material[offset:offset+n])
		offset += n
		return part
	}

	kb.ClientMACKey = next(spec.MacLen)
	kb.ServerMACKey = next(spec.MacLen)
	kb.ClientWriteKey = next(spec.KeyLen)
	kb.ServerWriteKey = next(spec.KeyLen)
	kb.ClientWriteIV = next(spec.FixedIVLen)
	kb.ServerWriteIV = next(spec.FixedIVLen)

	return kb, nil
}

// ComputeVerifyData computes the 12-byte Finished verify_data
// (RFC 5246 Section 7.4.9):
// verify_data = PRF(master_secret, finished_label, Hash(handshake_messages))
// where finished_label is "client finished" or "server finished" and the
// hash covers every handshake message before the Finished being built.
func ComputeVerifyData(hashFunc func() hash.Hash, masterSecret []byte, label string, transcriptDigest []byte) []byte {
	return PRF(hashFunc, masterSecret, label, transcriptDigest, verifyDataLength)
}

// KeySchedule carries one session's derivation state: the negotiated suite,
// the hello randoms, and the master secret once established.
type KeySchedule struct {
	spec         *CipherSpec
	masterSecret []byte
	clientRandom []byte
	serverRandom []byte
}

// NewKeySchedule creates a key schedule for the negotiated cipher suite.
func NewKeySchedule(suite uint16, clientRandom, serverRandom []byte) (*KeySchedule, error) {
	spec, err := SuiteByID(suite)
	if err != nil {
		return nil, err
	}

	ks := &KeySchedule{
		spec:         spec,
		clientRandom: make([]byte, len(clientRandom)),
		serverRandom: make([]byte, len(serverRandom)),
	}
	copy(ks.clientRandom, clientRandom)
	copy(ks.serverRandom, serverRandom)

	return ks, nil
}

// Suite returns the schedule's cipher suite.
func (ks *KeySchedule) Suite() *CipherSpec {
	return ks.spec
}

// SetMasterSecret installs an externally established master secret.
func (ks *KeySchedule) SetMasterSecret(masterSecret []byte) error {
	if len(masterSecret) != masterSecretLength {
		return &CryptoError{Type: ErrorKeyMaterial, Message: fmt.Sprintf("master secret length: got %d, want %d", len(masterSecret), masterSecretLength)}
	}
	ks.masterSecret = make([]byte, masterSecretLength)
	copy(ks.masterSecret, masterSecret)
	return nil
}

// DeriveMasterSecret derives and installs the master secret from the
// pre-master secret using the standard algorithm.
func (ks *KeySchedule) DeriveMasterSecret(preMasterSecret []byte) {
	ks.masterSecret = DeriveMasterSecret(ks.spec.prfHashFunc(), preMasterSecret, ks.clientRandom, ks.serverRandom)
}

// DeriveMasterSecretExtended derives and installs the master secret using
// the RFC 7627 extended algorithm.
func (ks *KeySchedule) DeriveMasterSecretExtended(preMasterSecret, sessionHash []byte) {
	ks.masterSecret = DeriveMasterSecretExtended(ks.spec.prfHashFunc(), preMasterSecret, sessionHash)
}

// MasterSecret returns a copy of the established master secret, or nil.
func (ks *KeySchedule) MasterSecret() []byte {
	if ks.masterSecret == nil {
		return nil
	}
	out := make([]byte, masterSecretLength)
	copy(out, ks.masterSecret)
	return out
}

// DeriveKeyBlock expands the established master secret into the key block.
func (ks *KeySchedule) DeriveKeyBlock() (*KeyBlock, error) {
	if ks.masterSecret == nil {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "master secret not established"}
	}
	return DeriveKeyBlock(ks.spec, ks.masterSecret, ks.clientRandom, ks.serverRandom)
}

// DeriveFinishedData computes the verify_data for this side's Finished
// message over the given transcript digest.
func (ks *KeySchedule) DeriveFinishedData(transcriptDigest []byte, isClient bool) ([]byte, error) {
	if ks.masterSecret == nil {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "master secret not established"}
	}

	label := "server finished"
	if isClient {
		label = "client finished"
	}
	return ComputeVerifyData(ks.spec.prfHashFunc(), ks.masterSecret, label, transcriptDigest), nil
}

// RecordCiphers builds the two directional record ciphers from the key
// block. The client cipher writes with client keys and reads with server
// keys; the server cipher is its mirror.
func (ks *KeySchedule) RecordCiphers() (client, server *RecordCipher, err error) {
	kb, err := ks.DeriveKeyBlock()
	if err != nil {
		return nil, nil, err
	}

	client, err = NewRecordCipher(ks.spec.ID, kb.ClientWriteKey, kb.ClientWriteIV, kb.ServerWriteKey, kb.ServerWriteIV)
	if err != nil {
		return nil, nil, err
	}
	server, err = NewRecordCipher(ks.spec.ID, kb.ServerWriteKey, kb.ServerWriteIV, kb.ClientWriteKey, kb.ClientWriteIV)
	if err != nil {
		return nil, nil, err
	}
	return client, server, nil
}
