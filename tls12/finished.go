package tls12

import (
	"crypto/hmac"
	"fmt"
)

const (
	handshakeTypeFinished = 20
	finishedMsgLen        = 4 + verifyDataLength
)

// MarshalFinished wraps the 12-byte verify_data in a Finished handshake
// message: msg_type(1) || length(3) || verify_data.
func MarshalFinished(verifyData []byte) ([]byte, error) {
	if len(verifyData) != verifyDataLength {
		return nil, &CryptoError{Type: ErrorEncoding, Message: fmt.Sprintf("verify_data length: got %d, want %d", len(verifyData), verifyDataLength)}
	}

	msg := make([]byte, finishedMsgLen)
	msg[0] = handshakeTypeFinished
	msg[1] = byte(verifyDataLength >> 16)
	msg[2] = byte(verifyDataLength >> 8)
	msg[3] = byte(verifyDataLength)
	copy(msg[4:], verifyData)
	return msg, nil
}

// ParseFinished decodes a Finished handshake message and returns its
// verify_data.
func ParseFinished(msg []byte) ([]byte, error) {
	if len(msg) < 4 {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("finished message length: got %d, want at least 4", len(msg))}
	}
	if msg[0] != handshakeTypeFinished {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("handshake type: got %d, want %d", msg[0], handshakeTypeFinished)}
	}

	bodyLen := int(msg[1])<<16 | int(msg[2])<<8 | int(msg[3])
	if bodyLen != verifyDataLength {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("finished body length: got %d, want %d", bodyLen, verifyDataLength)}
	}
	if len(msg) != finishedMsgLen {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("finished message length: got %d, want %d", len(msg), finishedMsgLen)}
	}

	verifyData := make([]byte, verifyDataLength)
	copy(verifyData, msg[4:])
	return verifyData, nil
}

// VerifyFinishedData compares the peer's verify_data against the locally
// derived value in constant time.
func VerifyFinishedData(expected, received []byte) error {
	if !hmac.Equal(expected, received) {
		return &CryptoError{Type: ErrorVerifyData, Message: "finished verify_data mismatch"}
	}
	return nil
}
