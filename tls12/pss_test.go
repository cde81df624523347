package tls12

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
)

func TestEncodePSSStructure(t *testing.T) {
	salt, _ := hex.DecodeString("11223344555432167890")
	digest := sha1.Sum([]byte("message to be signed"))
	const emBits = 1023

	em, err := EncodePSS(sha1.New, digest[:], salt, emBits)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(em) != 128 {
		t.Fatalf("encoded length: got %d, want 128", len(em))
	}
	if em[127] != 0xbc {
		t.Errorf("trailer byte: got 0x%02x, want 0xbc", em[127])
	}
	if em[0]&0x80 != 0 {
		t.Errorf("top bit not cleared: em[0] = 0x%02x", em[0])
	}

	again, err := EncodePSS(sha1.New, digest[:], salt, emBits)
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if !bytes.Equal(em, again) {
		t.Error("encoding not deterministic")
	}

	// unmask the data block and check every field longhand
	hLen := 20
	maskedDB := em[:128-hLen-1]
	h := em[128-hLen-1 : 127]
	dbMask := mgf1(sha1.New, h, len(maskedDB))
	db := make([]byte, len(maskedDB))
	for i := range db {
		db[i] = maskedDB[i] ^ dbMask[i]
	}
	db[0] &= 0x7f

	psLen := 128 - hLen - len(salt) - 2
	for i := 0; i < psLen; i++ {
		if db[i] != 0 {
			t.Fatalf("padding byte %d: got 0x%02x, want 0", i, db[i])
		}
	}
	if db[psLen] != 0x01 {
		t.Fatalf("separator: got 0x%02x, want 0x01", db[psLen])
	}
	if !bytes.Equal(db[psLen+1:], salt) {
		t.Errorf("recovered salt: got %x, want %x", db[psLen+1:], salt)
	}

	hh := sha1.New()
	hh.Write(make([]byte, 8))
	hh.Write(digest[:])
	hh.Write(salt)
	if !bytes.Equal(h, hh.Sum(nil)) {
		t.Errorf("embedded hash mismatch: got %x, want %x", h, hh.Sum(nil))
	}

	if err := VerifyPSS(sha1.New, digest[:], em, emBits, len(salt)); err != nil {
		t.Errorf("verification of own encoding failed: %v", err)
	}
	t.Logf("✅ PSS encoding carries salt, separator and hash exactly where the unmasking expects them")
}

func TestEncodePSSBoundaries(t *testing.T) {
	digest := sha1.Sum([]byte("message"))
	salt, _ := hex.DecodeString("11223344555432167890")

	// minimum size: emLen == hLen + sLen + 2 exactly
	em, err := EncodePSS(sha1.New, digest[:], salt, 256)
	if err != nil {
		t.Fatalf("minimum-size encode failed: %v", err)
	}
	if len(em) != 32 {
		t.Errorf("encoded length: got %d, want 32", len(em))
	}
	if err := VerifyPSS(sha1.New, digest[:], em, 256, len(salt)); err != nil {
		t.Errorf("minimum-size verification failed: %v", err)
	}

	// one byte smaller must fail, not truncate
	_, err = EncodePSS(sha1.New, digest[:], salt, 248)
	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) || cryptoErr.Type != ErrorEncoding {
		t.Errorf("undersized modulus: got %v, want an encoding error", err)
	}

	// oversized salt must fail the same way
	_, err = EncodePSS(sha1.New, digest[:], make([]byte, 107), 1023)
	if !errors.As(err, &cryptoErr) || cryptoErr.Type != ErrorEncoding {
		t.Errorf("oversized salt: got %v, want an encoding error", err)
	}

	// digest length must match the hash
	_, err = EncodePSS(sha1.New, make([]byte, 19), salt, 1023)
	if !errors.As(err, &cryptoErr) || cryptoErr.Type != ErrorEncoding {
		t.Errorf("wrong digest length: got %v, want an encoding error", err)
	}
}

func TestVerifyPSSRejects(t *testing.T) {
	salt, _ := hex.DecodeString("11223344555432167890")
	digest := sha1.Sum([]byte("message to be signed"))
	const emBits = 1023

	em, err := EncodePSS(sha1.New, digest[:], salt, emBits)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	check := func(name string, mutate func([]byte) []byte, sLen int) {
		t.Run(name, func(t *testing.T) {
			tampered := mutate(append([]byte{}, em...))
			if err := VerifyPSS(sha1.New, digest[:], tampered, emBits, sLen); err == nil {
				t.Error("expected verification failure")
			} else if err != errPSSVerify {
				t.Errorf("got %v, want the generic verification error", err)
			}
		})
	}

	check("WrongTrailer", func(b []byte) []byte { b[127] = 0xcc; return b }, len(salt))
	check("FlippedMaskBit", func(b []byte) []byte { b[40] ^= 0x01; return b }, len(salt))
	check("FlippedHashBit", func(b []byte) []byte { b[120] ^= 0x01; return b }, len(salt))
	check("SetTopBit", func(b []byte) []byte { b[0] |= 0x80; return b }, len(salt))
	check("Truncated", func(b []byte) []byte { return b[:127] }, len(salt))
	check("WrongSaltLength", func(b []byte) []byte { return b }, len(salt)+1)

	// a different digest must not verify against the same encoding
	otherDigest := sha1.Sum([]byte("a different message"))
	if err := VerifyPSS(sha1.New, otherDigest[:], em, emBits, len(salt)); err == nil {
		t.Error("encoding verified against the wrong digest")
	}
}

func TestMGF1KnownConstruction(t *testing.T) {
	seed := []byte("mgf1 seed value")

	mask := mgf1(sha256.New, seed, 40)
	if len(mask) != 40 {
		t.Fatalf("mask length: got %d, want 40", len(mask))
	}

	// longhand: Hash(seed || 00000000) || Hash(seed || 00000001)[:8]
	h := sha256.New()
	h.Write(seed)
	h.Write([]byte{0, 0, 0, 0})
	want := h.Sum(nil)
	h.Reset()
	h.Write(seed)
	h.Write([]byte{0, 0, 0, 1})
	want = append(want, h.Sum(nil)[:8]...)

	if !bytes.Equal(mask, want) {
		t.Errorf("mask mismatch: got %x, want %x", mask, want)
	}
}

func TestSignPSSInteropWithStdlib(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa key generation failed: %v", err)
	}

	key, err := NewSigningKey(rsaKey.N, rsaKey.E, rsaKey.D, rsaKey.Primes[0], rsaKey.Primes[1])
	if err != nil {
		t.Fatalf("failed to build signing key: %v", err)
	}

	digest := sha256.Sum256([]byte("certificate verify content"))
	salt := bytes.Repeat([]byte{0x5a}, 32)

	sig, err := key.SignPSS(sha256.New, digest[:], salt)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if len(sig) != 128 {
		t.Fatalf("signature length: got %d, want 128", len(sig))
	}

	// a fixed salt makes the signature reproducible
	again, err := key.SignPSS(sha256.New, digest[:], salt)
	if err != nil {
		t.Fatalf("second sign failed: %v", err)
	}
	if !bytes.Equal(sig, again) {
		t.Error("signing not deterministic under a fixed salt")
	}

	if err := key.Public().VerifyPSS(sha256.New, digest[:], sig, len(salt)); err != nil {
		t.Errorf("own verification failed: %v", err)
	}

	// the standard library must accept the signature as-is
	opts := &rsa.PSSOptions{SaltLength: len(salt), Hash: crypto.SHA256}
	if err := rsa.VerifyPSS(&rsaKey.PublicKey, crypto.SHA256, digest[:], sig, opts); err != nil {
		t.Errorf("crypto/rsa rejected the signature: %v", err)
	}

	tampered := make([]byte, len(sig))
	copy(tampered, sig)
	tampered[10] ^= 0x01
	if err := key.Public().VerifyPSS(sha256.New, digest[:], tampered, len(salt)); err == nil {
		t.Error("tampered signature verified")
	}
	t.Logf("✅ explicit-salt PSS signature verifies under both implementations")
}

func TestSignPSSMatchesDirectExponentiation(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa key generation failed: %v", err)
	}
	key, err := NewSigningKey(rsaKey.N, rsaKey.E, rsaKey.D, rsaKey.Primes[0], rsaKey.Primes[1])
	if err != nil {
		t.Fatalf("failed to build signing key: %v", err)
	}

	digest := sha256.Sum256([]byte("crt consistency"))
	salt := bytes.Repeat([]byte{0x11}, 20)

	sig, err := key.SignPSS(sha256.New, digest[:], salt)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	// the CRT path must agree with plain m^d mod n over the same encoding
	em, err := EncodePSS(sha256.New, digest[:], salt, rsaKey.N.BitLen()-1)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	m := new(big.Int).SetBytes(em)
	s := new(big.Int).Exp(m, rsaKey.D, rsaKey.N)
	want := make([]byte, 128)
	s.FillBytes(want)

	if !bytes.Equal(sig, want) {
		t.Errorf("CRT signature diverges from direct exponentiation")
	}
}

func TestNewSigningKeyRejects(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa key generation failed: %v", err)
	}

	wrongN := new(big.Int).Add(rsaKey.N, big.NewInt(2))
	if _, err := NewSigningKey(wrongN, rsaKey.E, rsaKey.D, rsaKey.Primes[0], rsaKey.Primes[1]); err == nil {
		t.Error("expected error for modulus that is not p*q")
	}

	// equal factors have no CRT inverse
	p := big.NewInt(65537)
	n := new(big.Int).Mul(p, p)
	if _, err := NewSigningKey(n, 3, big.NewInt(7), p, p); err == nil {
		t.Error("expected error for non-coprime factors")
	}
}

func TestVerifyKeyRejectsMalformedSignatures(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa key generation failed: %v", err)
	}
	pub := &VerifyKey{N: rsaKey.N, E: rsaKey.E}
	digest := sha256.Sum256([]byte("message"))

	if err := pub.VerifyPSS(sha256.New, digest[:], make([]byte, 127), 20); err != errPSSVerify {
		t.Errorf("short signature: got %v, want the generic verification error", err)
	}

	// a signature value at or above the modulus is out of range
	tooBig := make([]byte, 128)
	rsaKey.N.FillBytes(tooBig)
	if err := pub.VerifyPSS(sha256.New, digest[:], tooBig, 20); err != errPSSVerify {
		t.Errorf("out-of-range signature: got %v, want the generic verification error", err)
	}
}
