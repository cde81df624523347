package tls12

import (
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"hash"
	"math/big"
)

// EMSA-PSS encoding and RSASSA-PSS signing (RFC 8017 Sections 9.1 and
// 8.1) with the salt supplied by the caller. crypto/rsa only accepts a
// salt length and draws the bytes from its random source, which makes
// its signatures unreproducible, so the encoding is implemented here.

const pssTrailer = 0xbc

// errPSSVerify is the single failure value for every EMSA-PSS-VERIFY
// inconsistency, from a wrong trailer byte to a hash mismatch.
var errPSSVerify = &CryptoError{Type: ErrorVerifyData, Message: "pss verification failed"}

// mgf1 expands seed into maskLen bytes: Hash(seed || counter) for
// counter = 0, 1, ..., concatenated and truncated.
func mgf1(hashFunc func() hash.Hash, seed []byte, maskLen int) []byte {
	h := hashFunc()
	mask := make([]byte, 0, maskLen)

	var counter uint32
	var buf [4]byte
	for len(mask) < maskLen {
		binary.BigEndian.PutUint32(buf[:], counter)
		h.Reset()
		h.Write(seed)
		h.Write(buf[:])
		mask = h.Sum(mask)
		counter++
	}
	return mask[:maskLen]
}

// EncodePSS runs the EMSA-PSS-ENCODE operation (RFC 8017 Section 9.1.1)
// with an explicit salt. M' = eight zero bytes || mHash || salt is
// hashed, the salt is folded into the data block under an MGF1 mask, and
// the trailer byte 0xbc closes the encoding. Injecting the salt instead
// of drawing it internally is what makes the output reproducible.
func EncodePSS(hashFunc func() hash.Hash, mHash, salt []byte, emBits int) ([]byte, error) {
	h := hashFunc()
	hLen := h.Size()
	sLen := len(salt)
	emLen := (emBits + 7) / 8

	if len(mHash) != hLen {
		return nil, &CryptoError{Type: ErrorEncoding, Message: fmt.Sprintf("message hash length: got %d, want %d", len(mHash), hLen)}
	}
	if emLen < hLen+sLen+2 {
		return nil, &CryptoError{Type: ErrorEncoding, Message: fmt.Sprintf("encoding length %d too short for %d-byte salt", emLen, sLen)}
	}

	// H = Hash(0x00 * 8 || mHash || salt)
	var prefix [8]byte
	h.Write(prefix[:])
	h.Write(mHash)
	h.Write(salt)
	hashed := h.Sum(nil)

	// EM = maskedDB || H || 0xbc, where DB = PS || 0x01 || salt
	em := make([]byte, emLen)
	db := em[:emLen-hLen-1]
	db[emLen-sLen-hLen-2] = 0x01
	copy(db[emLen-sLen-hLen-1:], salt)
	copy(em[emLen-hLen-1:], hashed)
	em[emLen-1] = pssTrailer

	dbMask := mgf1(hashFunc, hashed, len(db))
	for i := range db {
		db[i] ^= dbMask[i]
	}

	// clear the bits above emBits in the leftmost octet
	db[0] &= 0xff >> (8*emLen - emBits)

	return em, nil
}

// VerifyPSS runs the EMSA-PSS-VERIFY operation (RFC 8017 Section 9.1.2)
// for a salt of known length.
func VerifyPSS(hashFunc func() hash.Hash, mHash, em []byte, emBits, sLen int) error {
	h := hashFunc()
	hLen := h.Size()
	emLen := (emBits + 7) / 8

	if sLen < 0 || len(mHash) != hLen {
		return errPSSVerify
	}
	if len(em) != emLen || emLen < hLen+sLen+2 {
		return errPSSVerify
	}
	if em[emLen-1] != pssTrailer {
		return errPSSVerify
	}

	maskedDB := em[:emLen-hLen-1]
	hashed := em[emLen-hLen-1 : emLen-1]

	topBits := 8*emLen - emBits
	if maskedDB[0]&^(0xff>>topBits) != 0 {
		return errPSSVerify
	}

	db := make([]byte, len(maskedDB))
	dbMask := mgf1(hashFunc, hashed, len(db))
	for i := range db {
		db[i] = maskedDB[i] ^ dbMask[i]
	}
	db[0] &= 0xff >> topBits

	psLen := emLen - hLen - sLen - 2
	for i := 0; i < psLen; i++ {
		if db[i] != 0 {
			return errPSSVerify
		}
	}
	if db[psLen] != 0x01 {
		return errPSSVerify
	}
	salt := db[len(db)-sLen:]

	var prefix [8]byte
	h.Reset()
	h.Write(prefix[:])
	h.Write(mHash)
	h.Write(salt)
	expected := h.Sum(nil)

	if !hmac.Equal(hashed, expected) {
		return errPSSVerify
	}
	return nil
}

// SigningKey is a raw RSA private key in CRT form. The precomputed
// exponents sit alongside the five classic components so signing costs
// two half-size exponentiations instead of one full-size one.
type SigningKey struct {
	N *big.Int
	E int
	D *big.Int
	P *big.Int
	Q *big.Int

	dP   *big.Int
	dQ   *big.Int
	qInv *big.Int
}

// NewSigningKey validates the key components and precomputes the CRT
// exponents.
func NewSigningKey(n *big.Int, e int, d, p, q *big.Int) (*SigningKey, error) {
	if new(big.Int).Mul(p, q).Cmp(n) != 0 {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "rsa modulus does not match its factors"}
	}

	one := big.NewInt(1)
	pMinus1 := new(big.Int).Sub(p, one)
	qMinus1 := new(big.Int).Sub(q, one)

	qInv := new(big.Int).ModInverse(q, p)
	if qInv == nil {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "rsa factors are not coprime"}
	}

	return &SigningKey{
		N:    n,
		E:    e,
		D:    d,
		P:    p,
		Q:    q,
		dP:   new(big.Int).Mod(d, pMinus1),
		dQ:   new(big.Int).Mod(d, qMinus1),
		qInv: qInv,
	}, nil
}

// Public returns the verification half of the key.
func (k *SigningKey) Public() *VerifyKey {
	return &VerifyKey{N: k.N, E: k.E}
}

// SignPSS produces an RSASSA-PSS signature over a precomputed message
// hash with the caller's salt. emBits is modBits-1, so the encoding
// clears the modulus's top bit and the RSA step cannot overflow.
func (k *SigningKey) SignPSS(hashFunc func() hash.Hash, mHash, salt []byte) ([]byte, error) {
	emBits := k.N.BitLen() - 1
	em, err := EncodePSS(hashFunc, mHash, salt, emBits)
	if err != nil {
		return nil, err
	}

	m := new(big.Int).SetBytes(em)
	if m.Cmp(k.N) >= 0 {
		return nil, &CryptoError{Type: ErrorEncoding, Message: "encoded message exceeds modulus"}
	}

	// Garner's recombination: s = m2 + q * (qInv * (m1 - m2) mod p)
	m1 := new(big.Int).Exp(m, k.dP, k.P)
	m2 := new(big.Int).Exp(m, k.dQ, k.Q)
	h := new(big.Int).Sub(m1, m2)
	h.Mul(h, k.qInv)
	h.Mod(h, k.P)
	s := new(big.Int).Mul(h, k.Q)
	s.Add(s, m2)

	sig := make([]byte, (k.N.BitLen()+7)/8)
	s.FillBytes(sig)
	return sig, nil
}

// VerifyKey is a raw RSA public key.
type VerifyKey struct {
	N *big.Int
	E int
}

// VerifyPSS checks an RSASSA-PSS signature over a precomputed message
// hash. sLen is the salt length the signer used.
func (k *VerifyKey) VerifyPSS(hashFunc func() hash.Hash, mHash, sig []byte, sLen int) error {
	if len(sig) != (k.N.BitLen()+7)/8 {
		return errPSSVerify
	}

	s := new(big.Int).SetBytes(sig)
	if s.Cmp(k.N) >= 0 {
		return errPSSVerify
	}

	m := new(big.Int).Exp(s, big.NewInt(int64(k.E)), k.N)

	emBits := k.N.BitLen() - 1
	if m.BitLen() > emBits {
		return errPSSVerify
	}
	em := make([]byte, (emBits+7)/8)
	m.FillBytes(em)

	return VerifyPSS(hashFunc, mHash, em, emBits, sLen)
}
