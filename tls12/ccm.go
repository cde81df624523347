package tls12

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

// AES-CCM (RFC 3610) with the fixed parameters RFC 6655 assigns to TLS:
// a 12-byte nonce (length field L=3) and a 16-byte authentication tag
// (M=16). The standard library ships no CCM mode, so it is built here on
// top of the AES block cipher, layered the same way crypto/cipher layers
// GCM over a Block.

const (
	ccmNonceLen = 12
	ccmTagLen   = 16

	// L=3 bounds the payload length at what three bytes can encode
	ccmMaxPayload = 1<<24 - 1

	// B_0 flags carry M'=(M-2)/2 in bits 5..3 and L'=L-1 in bits 2..0;
	// bit 6 is set when additional data is present. Counter blocks A_i
	// carry only L'.
	ccmFlagsB0      = ((ccmTagLen - 2) / 2 << 3) | (3 - 1)
	ccmFlagAdata    = 0x40
	ccmFlagsCounter = 3 - 1
)

var errCCMOpen = errors.New("cipher: message authentication failed")

type ccm struct {
	block cipher.Block
}

// newCCM wraps a 128-bit block cipher in CCM mode.
func newCCM(block cipher.Block) (cipher.AEAD, error) {
	if block.BlockSize() != ccmTagLen {
		return nil, &CryptoError{Type: ErrorKeyMaterial, Message: "ccm requires a 128-bit block cipher"}
	}
	return &ccm{block: block}, nil
}

func (c *ccm) NonceSize() int {
	return ccmNonceLen
}

func (c *ccm) Overhead() int {
	return ccmTagLen
}

// cbcRound advances the CBC-MAC state: X_{i+1} = E(X_i XOR B_i).
func (c *ccm) cbcRound(mac, block *[ccmTagLen]byte) {
	for i := range mac {
		mac[i] ^= block[i]
	}
	c.block.Encrypt(mac[:], mac[:])
}

// auth computes the CBC-MAC tag over B_0 (flags, nonce, payload length),
// the length-prefixed additional data, and the payload, each zero-padded
// to the block size.
func (c *ccm) auth(nonce, payload, additionalData []byte) [ccmTagLen]byte {
	var mac [ccmTagLen]byte

	mac[0] = ccmFlagsB0
	if len(additionalData) > 0 {
		mac[0] |= ccmFlagAdata
	}
	copy(mac[1:1+ccmNonceLen], nonce)
	mac[13] = byte(len(payload) >> 16)
	mac[14] = byte(len(payload) >> 8)
	mac[15] = byte(len(payload))
	c.block.Encrypt(mac[:], mac[:])

	if len(additionalData) > 0 {
		var block [ccmTagLen]byte

		// l(a) is encoded as two bytes below 0xff00, and as the
		// 0xff 0xfe marker plus four bytes above. The eight-byte form
		// for 2^32 and beyond never occurs at record sizes.
		n := 0
		if len(additionalData) < 0xff00 {
			binary.BigEndian.PutUint16(block[:2], uint16(len(additionalData)))
			n = 2
		} else {
			block[0], block[1] = 0xff, 0xfe
			binary.BigEndian.PutUint32(block[2:6], uint32(len(additionalData)))
			n = 6
		}

		ad := additionalData
		ad = ad[copy(block[n:], ad):]
		c.cbcRound(&mac, &block)

		for len(ad) > 0 {
			block = [ccmTagLen]byte{}
			ad = ad[copy(block[:], ad):]
			c.cbcRound(&mac, &block)
		}
	}

	remaining := payload
	for len(remaining) > 0 {
		var block [ccmTagLen]byte
		remaining = remaining[copy(block[:], remaining):]
		c.cbcRound(&mac, &block)
	}

	return mac
}

// ctrXOR applies the CCM keystream to src starting at the given block
// counter: A_i = flags || nonce || i, so counter 0 yields the S_0 block
// that masks the tag and counter 1 starts the payload keystream. Below
// the payload bound the 3-byte counter never wraps, so cipher.NewCTR's
// full-block increment never carries into the nonce.
func (c *ccm) ctrXOR(dst, src, nonce []byte, counter uint32) {
	var ctr [ccmTagLen]byte
	ctr[0] = ccmFlagsCounter
	copy(ctr[1:1+ccmNonceLen], nonce)
	ctr[13] = byte(counter >> 16)
	ctr[14] = byte(counter >> 8)
	ctr[15] = byte(counter)
	cipher.NewCTR(c.block, ctr[:]).XORKeyStream(dst, src)
}

func (c *ccm) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != ccmNonceLen {
		panic("tls12: incorrect nonce length given to CCM")
	}
	if len(plaintext) > ccmMaxPayload {
		panic("tls12: message too large for CCM")
	}

	ret, out := sliceForAppend(dst, len(plaintext)+ccmTagLen)

	tag := c.auth(nonce, plaintext, additionalData)
	c.ctrXOR(out, plaintext, nonce, 1)
	c.ctrXOR(out[len(plaintext):], tag[:], nonce, 0)

	return ret
}

func (c *ccm) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != ccmNonceLen {
		panic("tls12: incorrect nonce length given to CCM")
	}
	if len(ciphertext) < ccmTagLen || len(ciphertext) > ccmMaxPayload+ccmTagLen {
		return nil, errCCMOpen
	}

	tag := ciphertext[len(ciphertext)-ccmTagLen:]
	ciphertext = ciphertext[:len(ciphertext)-ccmTagLen]

	ret, out := sliceForAppend(dst, len(ciphertext))
	c.ctrXOR(out, ciphertext, nonce, 1)

	expected := c.auth(nonce, out, additionalData)
	c.ctrXOR(expected[:], expected[:], nonce, 0)

	if subtle.ConstantTimeCompare(expected[:], tag) != 1 {
		for i := range out {
			out[i] = 0
		}
		return nil, errCCMOpen
	}

	return ret, nil
}

// sliceForAppend extends in by n bytes, reusing its capacity when it can,
// and returns both the extended slice and the freshly added tail.
func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}
